package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TagPattern is a compiled inline tag template such as "#event/YYYY/MM/DD".
type TagPattern struct {
	template string
	re       *regexp.Regexp
	year     int
	month    int
	day      int
}

// CompileTagPattern turns a template into a regular expression. YYYY
// becomes a 4-digit group, MM and DD 2-digit groups, and every other
// character matches literally. The first occurrence of each placeholder
// supplies the date; a template missing any of them is rejected.
func CompileTagPattern(template string) (*TagPattern, error) {
	var b strings.Builder
	var seen [3]bool
	rest := template
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, "YYYY"):
			b.WriteString(placeholderGroup(&seen[0], "year", 4))
			rest = rest[4:]
		case strings.HasPrefix(rest, "MM"):
			b.WriteString(placeholderGroup(&seen[1], "month", 2))
			rest = rest[2:]
		case strings.HasPrefix(rest, "DD"):
			b.WriteString(placeholderGroup(&seen[2], "day", 2))
			rest = rest[2:]
		default:
			next := len(rest)
			for _, ph := range []string{"YYYY", "MM", "DD"} {
				if i := strings.Index(rest, ph); i >= 0 && i < next {
					next = i
				}
			}
			b.WriteString(regexp.QuoteMeta(rest[:next]))
			rest = rest[next:]
		}
	}
	if !seen[0] || !seen[1] || !seen[2] {
		return nil, fmt.Errorf("extract: tag pattern %q needs YYYY, MM and DD", template)
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("extract: compile tag pattern %q: %w", template, err)
	}
	return &TagPattern{
		template: template,
		re:       re,
		year:     re.SubexpIndex("year"),
		month:    re.SubexpIndex("month"),
		day:      re.SubexpIndex("day"),
	}, nil
}

func placeholderGroup(seen *bool, name string, digits int) string {
	if *seen {
		return `\d{` + strconv.Itoa(digits) + `}`
	}
	*seen = true
	return `(?P<` + name + `>\d{` + strconv.Itoa(digits) + `})`
}

// String returns the template the pattern was compiled from.
func (p *TagPattern) String() string { return p.template }

// TagMatch is one occurrence of the pattern within a line.
type TagMatch struct {
	Day     string // YYYY-MM-DD
	Text    string // the literal matched tag text
	Caption string // rest of the line, list marker stripped
}

var listMarkerRe = regexp.MustCompile(`^-\s*`)

// MatchLine returns every non-overlapping match in line whose digits form
// a real calendar date.
func (p *TagPattern) MatchLine(line string) []TagMatch {
	locs := p.re.FindAllStringSubmatchIndex(line, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]TagMatch, 0, len(locs))
	for _, loc := range locs {
		y := line[loc[2*p.year]:loc[2*p.year+1]]
		m := line[loc[2*p.month]:loc[2*p.month+1]]
		d := line[loc[2*p.day]:loc[2*p.day+1]]
		day, ok := dayFromDigits(y, m, d)
		if !ok {
			continue
		}
		caption := strings.TrimSpace(line[loc[1]:])
		caption = strings.TrimSpace(listMarkerRe.ReplaceAllString(caption, ""))
		out = append(out, TagMatch{
			Day:     day,
			Text:    line[loc[0]:loc[1]],
			Caption: caption,
		})
	}
	return out
}

// dayFromDigits validates the calendar date and returns its day key.
func dayFromDigits(year, month, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return DayKey(t), true
}
