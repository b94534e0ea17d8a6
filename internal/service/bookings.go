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

// Admission outcomes reported to the AdmissionObserver.
const (
	OutcomeAdmitted     = "admitted"
	OutcomeInvalidInput = "invalid_input"
	OutcomeNotFound     = "slot_not_found"
	OutcomeSlotFull     = "slot_full"
	OutcomeDuplicate    = "duplicate_booking"
	OutcomeStoreError   = "store_error"
)

// BookingService runs booking admission and booking lookups.
type BookingService struct {
	bookings BookingStore
	cache    SummaryCache
	observer AdmissionObserver
	validate *Validator
	logger   *slog.Logger
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(
	bookings BookingStore,
	cache SummaryCache,
	observer AdmissionObserver,
	validate *Validator,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		cache:    cache,
		observer: observer,
		validate: validate,
		logger:   logger,
	}
}

// CreateBooking admits a booking for req.SlotID. When eventID is non-empty the
// slot must belong to that event. Input is validated before any store access;
// the capacity and duplicate checks and the insert run atomically in the
// store. The returned error is one of ErrInvalidInput, repository.ErrNotFound,
// repository.ErrSlotFull, repository.ErrDuplicateBooking or a wrapped
// *repository.StoreError. Admissions are never retried here.
func (s *BookingService) CreateBooking(ctx context.Context, eventID string, req model.CreateBookingRequest) (*model.Booking, error) {
	start := time.Now()

	req.SlotID = strings.TrimSpace(req.SlotID)
	req.UserName = strings.TrimSpace(req.UserName)
	req.UserEmail = strings.TrimSpace(req.UserEmail)
	if err := s.validate.Struct(req); err != nil {
		s.observer.ObserveAdmission(OutcomeInvalidInput, time.Since(start))
		return nil, err
	}

	booking, err := s.bookings.Book(ctx, eventID, req)
	outcome := admissionOutcome(err)
	s.observer.ObserveAdmission(outcome, time.Since(start))
	if err != nil {
		if outcome == OutcomeStoreError {
			s.logger.Error("booking admission failed",
				"slot_id", req.SlotID,
				"error", err,
			)
			return nil, fmt.Errorf("create booking: %w", err)
		}
		s.logger.Debug("booking rejected",
			"slot_id", req.SlotID,
			"outcome", outcome,
		)
		return nil, err
	}

	s.cache.Invalidate(ctx, booking.EventID)
	s.logger.Info("booking admitted",
		"booking_id", booking.ID,
		"slot_id", booking.SlotID,
		"event_id", booking.EventID,
	)
	return booking, nil
}

func admissionOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAdmitted
	case errors.Is(err, repository.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, repository.ErrSlotFull):
		return OutcomeSlotFull
	case errors.Is(err, repository.ErrDuplicateBooking):
		return OutcomeDuplicate
	default:
		return OutcomeStoreError
	}
}

// ListUserBookings returns every booking made with email, or
// repository.ErrNoBookings when there are none.
func (s *BookingService) ListUserBookings(ctx context.Context, email string) ([]model.BookingDetail, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	details, err := s.bookings.ListByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("list user bookings: %w", err)
	}
	return details, nil
}

// ListBookings returns every booking in the system.
func (s *BookingService) ListBookings(ctx context.Context) ([]model.Booking, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// GetSlot reports the capacity and committed bookings of one slot.
func (s *BookingService) GetSlot(ctx context.Context, slotID string) (*model.SlotSummary, error) {
	slot, err := s.bookings.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	slot.CurrentBookings, err = s.bookings.CurrentCount(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("count slot bookings: %w", err)
	}
	summary := projectSlot(*slot)
	return &summary, nil
}
