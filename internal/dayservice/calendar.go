package dayservice

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/extract"
)

// MonthLayout is the format of month keys.
const MonthLayout = "2006-01"

// CalendarMonth is a month grid, Sunday first, padded with days of the
// neighbouring months to whole weeks.
type CalendarMonth struct {
	Month string         `json:"month"`
	Label string         `json:"label"`
	Prev  string         `json:"prev"`
	Next  string         `json:"next"`
	Weeks []CalendarWeek `json:"weeks"`
}

// CalendarWeek is one row of the grid.
type CalendarWeek struct {
	Days []CalendarDay `json:"days"`
}

// CalendarDay is one cell of the grid.
type CalendarDay struct {
	Date    string `json:"date"`
	Day     int    `json:"day"`
	InMonth bool   `json:"in_month"`
	Today   bool   `json:"today"`
	Count   int    `json:"count"`
}

// Month builds the grid for month (YYYY-MM, or "" for the current month)
// with the item count of every day.
func (s *Service) Month(_ context.Context, month string) (*CalendarMonth, error) {
	now := s.opts.Now()
	var start time.Time
	if month == "" {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	} else {
		t, err := time.Parse(MonthLayout, month)
		if err != nil {
			return nil, fmt.Errorf("month %q: %w", month, apperr.ErrInvalidDay)
		}
		start = t
	}
	m := buildMonth(start, s.idx.Store().Counts(), extract.DayKey(now))
	return &m, nil
}

func buildMonth(monthStart time.Time, counts map[string]int, today string) CalendarMonth {
	monthEnd := monthStart.AddDate(0, 1, -1)
	gridStart := monthStart.AddDate(0, 0, -int(monthStart.Weekday()))

	var weeks []CalendarWeek
	var days []CalendarDay
	for day := gridStart; ; day = day.AddDate(0, 0, 1) {
		key := extract.DayKey(day)
		days = append(days, CalendarDay{
			Date:    key,
			Day:     day.Day(),
			InMonth: day.Month() == monthStart.Month(),
			Today:   key == today,
			Count:   counts[key],
		})
		if len(days) == 7 {
			weeks = append(weeks, CalendarWeek{Days: days})
			days = nil
			if !day.Before(monthEnd) {
				break
			}
		}
	}

	return CalendarMonth{
		Month: monthStart.Format(MonthLayout),
		Label: monthStart.Format("January 2006"),
		Prev:  monthStart.AddDate(0, -1, 0).Format(MonthLayout),
		Next:  monthStart.AddDate(0, 1, 0).Format(MonthLayout),
		Weeks: weeks,
	}
}
