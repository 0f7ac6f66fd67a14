package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/daymark/internal/apperr"
	"github.com/starford/daymark/internal/dayservice"
	"github.com/starford/daymark/internal/index"
)

// Handler holds API route handlers.
type Handler struct {
	svc *dayservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *dayservice.Service) *Handler {
	return &Handler{svc: svc}
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidDay), errors.Is(err, apperr.ErrInvalidMode):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDays handles GET /days.
//
//	@Summary		List days holding at least one item
//	@Tags			days
//	@Produce		json
//	@Param			from	query		string	false	"First day (YYYY-MM-DD)"
//	@Param			to		query		string	false	"Last day (YYYY-MM-DD)"
//	@Success		200		{object}	DaysResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days [get]
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days, err := h.svc.Days(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, "list days", err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// GetDay handles GET /days/{day}.
//
//	@Summary		List the items of a day
//	@Tags			days
//	@Produce		json
//	@Param			day		path		string	true	"Day (YYYY-MM-DD or today)"
//	@Param			shift	query		int		false	"Days to move from day"
//	@Success		200		{object}	DayItemsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{day} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	shift := 0
	if raw := r.URL.Query().Get("shift"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("shift must be an integer"))
			return
		}
		shift = n
	}
	items, err := h.svc.ItemsForDay(r.Context(), chi.URLParam(r, "day"), shift)
	if err != nil {
		writeError(w, "get day", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateDayNote handles POST /days/{day}/notes.
//
//	@Summary		Create a note for a day
//	@Tags			days
//	@Accept			json
//	@Produce		json
//	@Param			day		path		string					true	"Day (YYYY-MM-DD or today)"
//	@Param			body	body		CreateDayNoteRequest	false	"Initial content"
//	@Success		201		{object}	dayservice.CreatedNote
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{day}/notes [post]
func (h *Handler) CreateDayNote(w http.ResponseWriter, r *http.Request) {
	var req CreateDayNoteRequest
	if !readJSON(w, r, 2<<20, &req) {
		return
	}
	created, err := h.svc.CreateNote(r.Context(), chi.URLParam(r, "day"), req.Content)
	if err != nil {
		writeError(w, "create day note", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Calendar handles GET /calendar and GET /calendar/{month}.
//
//	@Summary		Month grid with item counts
//	@Tags			calendar
//	@Produce		json
//	@Param			month	path		string	false	"Month (YYYY-MM), current month if omitted"
//	@Success		200		{object}	CalendarResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/calendar/{month} [get]
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Month(r.Context(), chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, "calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Rebuild handles POST /index/rebuild.
//
//	@Summary		Rebuild the day index from the vault
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	RebuildResponse
//	@Security		BearerAuth
//	@Router			/index/rebuild [post]
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Rebuild(r.Context())
	if err != nil {
		writeError(w, "rebuild", err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse(sum))
}

// Status handles GET /index/status.
//
//	@Summary		Active date source and index size
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/index/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status(r.Context()))
}

// SetMode handles PUT /index/mode.
//
//	@Summary		Switch the date source and rebuild
//	@Tags			index
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SetModeRequest	true	"Date source"
//	@Success		200		{object}	RebuildResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/index/mode [put]
func (h *Handler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req SetModeRequest
	if !readJSON(w, r, 1<<10, &req) {
		return
	}
	sum, err := h.svc.SetMode(r.Context(), req.Mode)
	if err != nil {
		writeError(w, "set mode", err)
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse(sum))
}

func rebuildResponse(sum index.Summary) RebuildResponse {
	return RebuildResponse{
		Mode:      sum.Mode.String(),
		Documents: sum.Documents,
		Days:      sum.Days,
		Items:     sum.Items,
		TookMS:    sum.Duration.Milliseconds(),
	}
}
