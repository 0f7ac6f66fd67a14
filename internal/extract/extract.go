// Package extract derives calendar days from vault documents.
//
// An Extractor is built for one Mode and its settings. It never returns an
// error: unparseable dates are skipped, unreadable documents are logged and
// treated as empty, and a tag pattern without its placeholders matches
// nothing.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/daymark/internal/models"
)

// Entry associates an Item with a day key.
type Entry struct {
	Day  string
	Item models.Item
}

// Source supplies document content and frontmatter.
type Source interface {
	ReadContent(ctx context.Context, path string) (string, error)
	Frontmatter(ctx context.Context, path string) (map[string]interface{}, error)
}

// Config holds the per-mode settings.
type Config struct {
	Mode           Mode
	YAMLKey        string
	DateFormat     string
	HashtagPattern string
}

// Extractor turns documents into day entries for a single Mode.
type Extractor struct {
	cfg     Config
	layout  Layout
	pattern *TagPattern // nil when the template is unusable
	logger  *slog.Logger
}

// New builds an Extractor. Only an invalid mode or date format is an
// error; a bad hashtag pattern is logged and disables tag matching.
func New(cfg Config, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode
	layout, err := ParseLayout(cfg.DateFormat)
	if err != nil {
		return nil, err
	}
	e := &Extractor{cfg: cfg, layout: layout, logger: logger}
	if mode == ModeTag {
		p, err := CompileTagPattern(cfg.HashtagPattern)
		if err != nil {
			logger.Warn("extract: tag pattern unusable, no tags will match",
				slog.String("pattern", cfg.HashtagPattern),
				slog.String("error", err.Error()))
		}
		e.pattern = p
	}
	return e, nil
}

// Mode returns the extractor's mode.
func (e *Extractor) Mode() Mode { return e.cfg.Mode }

// Config returns the settings the extractor was built with.
func (e *Extractor) Config() Config { return e.cfg }

// Layout returns the parsed date format.
func (e *Extractor) Layout() Layout { return e.layout }

// WithMode returns a copy of the extractor's settings with mode replaced.
func (e *Extractor) WithMode(mode Mode) (*Extractor, error) {
	cfg := e.cfg
	cfg.Mode = mode
	return New(cfg, e.logger)
}

// Extract dispatches on the mode and returns the document's entries.
func (e *Extractor) Extract(ctx context.Context, doc models.Document, src Source) []Entry {
	switch e.cfg.Mode {
	case ModeMetadata:
		fm, err := src.Frontmatter(ctx, doc.Path)
		if err != nil {
			e.readFailed(doc.Path, err)
			return nil
		}
		return e.FromMetadata(doc, fm)
	case ModeFilename:
		return e.FromFilename(doc)
	case ModeTag:
		if e.pattern == nil {
			return nil
		}
		content, err := src.ReadContent(ctx, doc.Path)
		if err != nil {
			e.readFailed(doc.Path, err)
			return nil
		}
		return e.FromContent(doc, content)
	}
	return nil
}

func (e *Extractor) readFailed(path string, err error) {
	e.logger.Warn("extract: read failed",
		slog.String("path", path),
		slog.String("error", err.Error()))
}

// FromMetadata dates a document by its configured frontmatter field.
func (e *Extractor) FromMetadata(doc models.Document, fm map[string]interface{}) []Entry {
	raw, ok := fm[e.cfg.YAMLKey]
	if !ok || raw == nil {
		return nil
	}
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		// parser.Parse decodes into interface{}, where yaml.v3 keeps
		// timestamps as strings; callers handing in frontmatter decoded
		// elsewhere (or into typed maps) may pass a time.Time.
		t = v
	default:
		parsed, ok := e.layout.Parse(fmt.Sprint(v))
		if !ok {
			return nil
		}
		t = parsed
	}
	return []Entry{{Day: DayKey(t), Item: models.NewNoteItem(doc)}}
}

// FromFilename dates a document by its basename.
func (e *Extractor) FromFilename(doc models.Document) []Entry {
	if len([]rune(doc.Basename)) < e.layout.Width() {
		return nil
	}
	t, ok := e.layout.Parse(doc.Basename)
	if !ok {
		return nil
	}
	return []Entry{{Day: DayKey(t), Item: models.NewNoteItem(doc)}}
}

// FromContent scans content line by line for the tag pattern.
func (e *Extractor) FromContent(doc models.Document, content string) []Entry {
	if e.pattern == nil {
		return nil
	}
	var out []Entry
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		for _, m := range e.pattern.MatchLine(line) {
			out = append(out, Entry{
				Day: m.Day,
				Item: models.TagItem{
					DisplayName: TagLabel(doc.Basename, m.Text, m.Caption),
					SourcePath:  doc.Path,
					Tag:         m.Text,
					Line:        i,
				},
			})
		}
	}
	return out
}

// TagLabel builds the wiki-link display name for a tag occurrence.
func TagLabel(basename, tag, caption string) string {
	if caption == "" {
		return "[[" + basename + "]]"
	}
	return "[[" + basename + "#" + tag + "|" + caption + "]]"
}
