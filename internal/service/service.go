// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/repository"
)

// EventStore persists events and their slots.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Delete(ctx context.Context, id string) error
}

// BookingStore admits and reads bookings. CurrentCount and GetSlot form the
// capacity tracker.
type BookingStore interface {
	Book(ctx context.Context, eventID string, req model.CreateBookingRequest) (*model.Booking, error)
	ListByEmail(ctx context.Context, email string) ([]model.BookingDetail, error)
	List(ctx context.Context) ([]model.Booking, error)
	CurrentCount(ctx context.Context, slotID string) (int, error)
	GetSlot(ctx context.Context, slotID string) (*model.TimeSlot, error)
}

// SummaryCache holds projected event summaries. Implementations must treat
// failures as misses.
type SummaryCache interface {
	GetEvent(ctx context.Context, id string) (*model.EventSummary, bool)
	SetEvent(ctx context.Context, summary *model.EventSummary)
	GetEventList(ctx context.Context) ([]model.EventSummary, bool)
	SetEventList(ctx context.Context, summaries []model.EventSummary)
	Invalidate(ctx context.Context, eventID string)
}

// AdmissionObserver records the outcome of each admission attempt.
type AdmissionObserver interface {
	ObserveAdmission(outcome string, elapsed time.Duration)
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events   EventStore
	cache    SummaryCache
	validate *Validator
	logger   *slog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, cache SummaryCache, validate *Validator, logger *slog.Logger) *EventService {
	return &EventService{events: events, cache: cache, validate: validate, logger: logger}
}

// CreateEvent validates the request, stores the event with its slots and
// returns its projection.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.EventSummary, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		if d == "" {
			req.Description = nil
		} else {
			req.Description = &d
		}
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	event, err := s.events.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.cache.Invalidate(ctx, event.ID)

	s.logger.Info("event created", "event_id", event.ID, "slots", len(event.Slots))
	summary := projectEvent(*event)
	return &summary, nil
}

// ListEvents returns the summary of every event, oldest first.
func (s *EventService) ListEvents(ctx context.Context) ([]model.EventSummary, error) {
	if cached, ok := s.cache.GetEventList(ctx); ok {
		return cached, nil
	}
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	summaries := projectEvents(events)
	s.cache.SetEventList(ctx, summaries)
	return summaries, nil
}

// GetEvent returns a single event summary by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.EventSummary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, repository.ErrEventNotFound
	}
	if cached, ok := s.cache.GetEvent(ctx, id); ok {
		return cached, nil
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	summary := projectEvent(*event)
	s.cache.SetEvent(ctx, &summary)
	return &summary, nil
}

// DeleteEvent removes an event with its slots and bookings.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.cache.Invalidate(ctx, id)
	s.logger.Info("event deleted", "event_id", id)
	return nil
}
