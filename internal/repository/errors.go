package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

var (
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	ErrSlotNotFound  = fmt.Errorf("time slot %w", ErrNotFound)
	ErrNoBookings    = fmt.Errorf("bookings for user %w", ErrNotFound)
)

// ErrSlotFull is returned when a slot has no remaining capacity.
var ErrSlotFull = errors.New("time slot is fully booked")

// ErrDuplicateBooking is returned when the same email books a slot twice.
var ErrDuplicateBooking = errors.New("user already booked this slot")

// StoreError wraps a failure of the underlying datastore.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
