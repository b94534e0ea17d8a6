// Package model defines the core domain types for the slot booking system.
package model

import "time"

// RemovedEventTitle is reported in place of an event title when the event a
// booking points at no longer exists.
const RemovedEventTitle = "[event removed]"

// Event is a named occasion offering one or more bookable time slots.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Slots       []TimeSlot `json:"slots"`
}

// TimeSlot is a bookable window under an Event. CurrentBookings holds the
// number of committed bookings at the time the slot was read.
type TimeSlot struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	StartTime       time.Time `json:"start_time"`
	MaxBookings     int       `json:"max_bookings"`
	CurrentBookings int       `json:"current_bookings"`
}

// Available returns the remaining seats, never below zero.
func (s *TimeSlot) Available() int {
	if n := s.MaxBookings - s.CurrentBookings; n > 0 {
		return n
	}
	return 0
}

// IsFull returns true when no seats remain.
func (s *TimeSlot) IsFull() bool {
	return s.CurrentBookings >= s.MaxBookings
}

// Booking is a user's reservation of one seat in a TimeSlot.
type Booking struct {
	ID        string    `json:"id"`
	SlotID    string    `json:"slot_id"`
	EventID   string    `json:"event_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	BookedAt  time.Time `json:"booked_at"`
}

// BookingDetail is a Booking with its parent event and slot denormalised at
// lookup time. When the parent is gone EventRemoved is set and the event
// fields carry sentinel values.
type BookingDetail struct {
	Booking
	EventTitle       string     `json:"event_title"`
	EventDescription *string    `json:"event_description"`
	SlotStartTime    *time.Time `json:"slot_start_time"`
	EventRemoved     bool       `json:"event_removed"`
}

// SlotSummary is the read-side view of a single slot.
type SlotSummary struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	MaxBookings     int       `json:"max_bookings"`
	CurrentBookings int       `json:"current_bookings"`
	Available       int       `json:"available"`
}

// EventSummary is the read-side view of an event with per-slot availability.
type EventSummary struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	CreatedAt      time.Time     `json:"created_at"`
	TotalSlots     int           `json:"total_slots"`
	AvailableSlots int           `json:"available_slots"`
	Slots          []SlotSummary `json:"slots"`
}

// CreateSlotRequest describes one slot in a CreateEventRequest.
type CreateSlotRequest struct {
	StartTime   time.Time `json:"start_time" validate:"required"`
	MaxBookings int       `json:"max_bookings" validate:"gte=1,lte=2147483647"`
}

// CreateEventRequest is the payload for creating an event with its slots.
type CreateEventRequest struct {
	Title       string              `json:"title" validate:"required,min=1,max=100"`
	Description *string             `json:"description" validate:"omitempty,max=500"`
	Slots       []CreateSlotRequest `json:"slots" validate:"required,min=1,dive"`
}

// CreateBookingRequest is the payload for booking a slot.
type CreateBookingRequest struct {
	SlotID    string `json:"slot_id" validate:"required"`
	UserName  string `json:"user_name" validate:"required,min=2,max=100"`
	UserEmail string `json:"user_email" validate:"required,email,max=255"`
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Code   string       `json:"code"`
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}
