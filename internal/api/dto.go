package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/daymark/internal/dayservice"
	"github.com/starford/daymark/internal/extract"
)

// CreateDayNoteRequest is the request body for creating a note for a day.
type CreateDayNoteRequest struct {
	Content string `json:"content" example:"# Plan\n- call Bob"`
}

// Validate checks the request body.
func (r CreateDayNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Length(0, 1<<20)),
	)
}

// SetModeRequest is the request body for switching the date source.
type SetModeRequest struct {
	Mode string `json:"mode" example:"filename" validate:"required"`
}

// Validate checks the request body. Legacy mode names are accepted.
func (r SetModeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.Required, validation.By(func(v interface{}) error {
			_, err := extract.ParseMode(v.(string))
			return err
		})),
	)
}

// DayItemsResponse is the content of one day (aliased from the domain layer).
type DayItemsResponse = dayservice.DayItems

// DaysResponse wraps the list of non-empty days.
type DaysResponse struct {
	Days []dayservice.DayCount `json:"days" validate:"required"`
}

// CalendarResponse is a month grid (aliased from the domain layer).
type CalendarResponse = dayservice.CalendarMonth

// StatusResponse describes the index (aliased from the domain layer).
type StatusResponse = dayservice.Status

// RebuildResponse summarises a rebuild.
type RebuildResponse struct {
	Mode      string `json:"mode" example:"filename" validate:"required"`
	Documents int    `json:"documents" example:"120" validate:"required"`
	Days      int    `json:"days" example:"87" validate:"required"`
	Items     int    `json:"items" example:"95" validate:"required"`
	TookMS    int64  `json:"took_ms" example:"12" validate:"required"`
}
