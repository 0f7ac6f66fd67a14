package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/nleeper/goment"
)

// DayLayout is the canonical day key format.
const DayLayout = "2006-01-02"

// dayjs/moment tokens the format may use, longest first so that "MMMM"
// wins over "MM" and "Do" over "D".
var formatTokens = []struct {
	token string
	part  byte // 'y', 'm', 'd' for the date components, 0 otherwise
}{
	{"YYYY", 'y'},
	{"YY", 'y'},
	{"MMMM", 'm'},
	{"MMM", 'm'},
	{"MM", 'm'},
	{"M", 'm'},
	{"Do", 'd'},
	{"DD", 'd'},
	{"D", 'd'},
	{"dddd", 0},
	{"ddd", 0},
	{"HH", 0},
	{"H", 0},
	{"hh", 0},
	{"h", 0},
	{"mm", 0},
	{"m", 0},
	{"ss", 0},
	{"s", 0},
	{"A", 0},
	{"a", 0},
	{"ZZ", 0},
	{"Z", 0},
}

var errIncompleteFormat = errors.New("format must contain year, month and day")

// Layout is a validated dayjs/moment date format. Parsing and rendering
// go through goment, which reads the same tokens.
type Layout struct {
	format string
	width  int
}

// ParseLayout validates a dayjs-style format such as "YYYY-MM-DD",
// "DD.MM.YYYY" or "MMMM Do, YYYY". Text inside square brackets is literal.
func ParseLayout(format string) (Layout, error) {
	if format == "" {
		return Layout{}, fmt.Errorf("extract: empty date format")
	}
	var seen [3]bool
	width := 0
	rest := format
	for rest != "" {
		if rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Layout{}, fmt.Errorf("extract: unclosed literal in %q", format)
			}
			width += utf8.RuneCountInString(rest[1:end])
			rest = rest[end+1:]
			continue
		}
		matched := false
		for _, tok := range formatTokens {
			if strings.HasPrefix(rest, tok.token) {
				switch tok.part {
				case 'y':
					seen[0] = true
				case 'm':
					seen[1] = true
				case 'd':
					seen[2] = true
				}
				width += len(tok.token)
				rest = rest[len(tok.token):]
				matched = true
				break
			}
		}
		if !matched {
			_, size := utf8.DecodeRuneInString(rest)
			width++
			rest = rest[size:]
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return Layout{}, fmt.Errorf("extract: %q: %w", format, errIncompleteFormat)
	}
	return Layout{format: format, width: width}, nil
}

// MustParseLayout is ParseLayout for known-good formats.
func MustParseLayout(format string) Layout {
	l, err := ParseLayout(format)
	if err != nil {
		panic(err)
	}
	return l
}

// Format returns the dayjs format the layout was built from.
func (l Layout) Format() string { return l.format }

// Width is the length of the format in characters, bracket delimiters
// excluded.
func (l Layout) Width() int { return l.width }

// Parse reads a date from the start of value. When the whole value does not
// parse, successively shorter prefixes are tried, so "15.3.2024 meeting"
// still yields a day under "D.M.YYYY".
//
// A candidate is accepted only if rendering the parsed time with the same
// format gives the candidate back, ignoring case and leading zeros. That
// rejects calendar overflow such as "2024-02-30" and mismatched literals.
func (l Layout) Parse(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" || l.format == "" {
		return time.Time{}, false
	}
	runes := []rune(value)
	for n := len(runes); n > 0; n-- {
		if n < len(runes) && !boundary(runes[n-1], runes[n]) {
			continue
		}
		candidate := strings.TrimSpace(string(runes[:n]))
		if t, ok := l.parseExact(candidate); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func (l Layout) parseExact(candidate string) (time.Time, bool) {
	if candidate == "" {
		return time.Time{}, false
	}
	g, err := goment.New(candidate, l.format)
	if err != nil {
		return time.Time{}, false
	}
	if normalize(g.Format(l.format)) != normalize(candidate) {
		return time.Time{}, false
	}
	return g.ToTime(), true
}

// Render formats t with the layout (used to name new notes).
func (l Layout) Render(t time.Time) string {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)
	g, err := goment.New(wall)
	if err != nil {
		return t.Format(DayLayout)
	}
	return g.Format(l.format)
}

// DayKey returns the canonical YYYY-MM-DD key for t.
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// boundary reports whether a prefix may end between a and b: a number or a
// word is never cut in half.
func boundary(a, b rune) bool {
	if unicode.IsDigit(a) && unicode.IsDigit(b) {
		return false
	}
	return !(unicode.IsLetter(a) && unicode.IsLetter(b))
}

// normalize lowercases s and drops leading zeros from every digit run.
func normalize(s string) string {
	var b strings.Builder
	runes := []rune(strings.ToLower(s))
	leading := true
	for i, r := range runes {
		if !unicode.IsDigit(r) {
			leading = true
			b.WriteRune(r)
			continue
		}
		if r == '0' && leading && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
			continue
		}
		leading = false
		b.WriteRune(r)
	}
	return b.String()
}
