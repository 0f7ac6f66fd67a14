package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daymark/internal/dayservice"
	"github.com/starford/daymark/internal/extract"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Vault    VaultConfig       `yaml:"vault"`
	Calendar CalendarConfig    `yaml:"calendar"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Calendar.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the Markdown vault location and scan settings.
type VaultConfig struct {
	Path string `yaml:"path"`
	// Ignore lists vault-relative folders that are never indexed.
	Ignore []string `yaml:"ignore"`
	// CacheSize is the number of note bodies kept in memory; 0 selects the default.
	CacheSize int `yaml:"cache_size"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.CacheSize, validation.Min(0)),
	)
}

// CalendarConfig selects how notes are dated and how days are presented.
type CalendarConfig struct {
	DateSource     string `yaml:"date_source"`
	YAMLKey        string `yaml:"yaml_key"`
	DateFormat     string `yaml:"date_format"`
	HashtagPattern string `yaml:"hashtag_pattern"`
	Sorting        string `yaml:"sorting"`
	NewNoteFolder  string `yaml:"new_note_folder"`
	NewNoteFormat  string `yaml:"new_note_format"`
}

// Validate validates the calendar configuration and normalises legacy
// date source names.
func (c *CalendarConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DateSource, validation.Required, validation.By(func(v interface{}) error {
			_, err := extract.ParseMode(v.(string))
			return err
		})),
		validation.Field(&c.YAMLKey, validation.When(c.mode() == extract.ModeMetadata, validation.Required)),
		validation.Field(&c.DateFormat, validation.Required, validation.By(func(v interface{}) error {
			_, err := extract.ParseLayout(v.(string))
			return err
		})),
		validation.Field(&c.Sorting, validation.In(dayservice.SortName, dayservice.SortNameRev)),
	); err != nil {
		return err
	}
	c.DateSource = c.mode().String()
	return nil
}

func (c *CalendarConfig) mode() extract.Mode {
	m, _ := extract.ParseMode(c.DateSource)
	return m
}

// Extract returns the extractor settings.
func (c *CalendarConfig) Extract() extract.Config {
	return extract.Config{
		Mode:           c.mode(),
		YAMLKey:        c.YAMLKey,
		DateFormat:     c.DateFormat,
		HashtagPattern: c.HashtagPattern,
	}
}

// SQLiteConfig holds the location of the optional day index mirror. An
// empty Path disables the mirror.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether the mirror should be written.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Calendar: CalendarConfig{
			DateSource:     extract.ModeMetadata.String(),
			YAMLKey:        "date",
			DateFormat:     "YYYY-MM-DD",
			HashtagPattern: "#event/YYYY/MM/DD",
			Sorting:        dayservice.SortName,
			NewNoteFormat:  "YYYY-MM-DD",
		},
		SQLite: SQLiteConfig{
			Path: "./daymark.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
