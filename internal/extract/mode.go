package extract

import (
	"fmt"
	"strings"

	"github.com/starford/daymark/internal/apperr"
)

// Mode selects how documents are dated.
type Mode string

const (
	ModeMetadata Mode = "metadata-field"
	ModeFilename Mode = "filename"
	ModeTag      Mode = "inline-tag-pattern"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeMetadata, ModeFilename, ModeTag}

// ParseMode normalises a configured date source. The legacy names
// "yaml" and "hashtag" are accepted as aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeMetadata), "yaml", "metadata":
		return ModeMetadata, nil
	case string(ModeFilename):
		return ModeFilename, nil
	case string(ModeTag), "hashtag", "tag":
		return ModeTag, nil
	}
	return "", fmt.Errorf("extract: %q: %w", s, apperr.ErrInvalidMode)
}

func (m Mode) String() string { return string(m) }
