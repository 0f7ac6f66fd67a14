package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/extract"
)

// Today is the day value that resolves to the current local date.
const Today = "today"

// ParseDay validates a YYYY-MM-DD day key.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(extract.DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", day, apperr.ErrInvalidDay)
	}
	return t, nil
}

// ResolveDay turns a requested day ("today" or a day key) plus a shift in
// days into a day key. A shift of 1 is the "next day" command, -1 the
// "previous day" command.
func ResolveDay(day string, shift int, now time.Time) (string, error) {
	var t time.Time
	if strings.EqualFold(day, Today) || day == "" {
		y, m, d := now.Date()
		t = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := ParseDay(day)
		if err != nil {
			return "", err
		}
		t = parsed
	}
	return extract.DayKey(t.AddDate(0, 0, shift)), nil
}

// ShiftDay moves a day key by n days.
func ShiftDay(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return extract.DayKey(t.AddDate(0, 0, n)), nil
}
