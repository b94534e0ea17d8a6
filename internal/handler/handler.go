// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/repository"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/service"
	"github.com/go-chi/chi/v5"
)

// Error codes carried in model.ErrorResponse.
const (
	CodeInvalidInput     = "invalid_input"
	CodeNotFound         = "not_found"
	CodeSlotFull         = "slot_full"
	CodeDuplicateBooking = "duplicate_booking"
	CodeRateLimited      = "rate_limited"
	CodeStoreError       = "store_error"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, model.ErrorResponse{Code: code, Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the service error taxonomy onto HTTP responses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verrs service.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Code:   CodeInvalidInput,
			Error:  service.ErrInvalidInput.Error(),
			Fields: verrs,
		})
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, repository.ErrSlotFull):
		writeError(w, http.StatusConflict, CodeSlotFull, err.Error())
	case errors.Is(err, repository.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, CodeDuplicateBooking, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, CodeStoreError, "internal error")
	}
}

// ─── Events ───────────────────────────────────────────────────────────────────

// EventHandler holds the HTTP handlers for events.
type EventHandler struct {
	svc    *service.EventService
	logger *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// CreateEvent handles POST /events
// Creates an event together with its time slots.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// ListEvents handles GET /events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if events == nil {
		events = []model.EventSummary{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// BookingHandler holds the HTTP handlers for bookings and slots.
type BookingHandler struct {
	svc    *service.BookingService
	logger *slog.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

// CreateBooking handles POST /bookings and POST /events/{id}/bookings.
// The nested form only admits slots that belong to the event in the path.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
		return
	}

	booking, err := h.svc.CreateBooking(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// ListUserBookings handles GET /bookings/users/{email}/bookings
func (h *BookingHandler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid email in path")
		return
	}

	details, err := h.svc.ListUserBookings(r.Context(), email)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// ListBookings handles GET /bookings/all
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListBookings(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GetSlot handles GET /slots/{id}
func (h *BookingHandler) GetSlot(w http.ResponseWriter, r *http.Request) {
	slot, err := h.svc.GetSlot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
