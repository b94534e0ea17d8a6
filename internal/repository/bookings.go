package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingRepository handles persistence for bookings and tracks slot capacity.
type BookingRepository struct {
	db  DB
	now func() time.Time
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Book admits a booking for req.SlotID inside a single transaction. When
// eventID is non-empty the slot must belong to that event.
//
// The slot row is locked with SELECT ... FOR UPDATE before anything is
// counted, so concurrent admissions for the same slot queue behind each
// other and each one sees every booking committed before it. Two requests
// racing for the last seat therefore end with one commit and one
// ErrSlotFull. The unique_booking constraint catches any duplicate that
// reaches the insert.
//
// The transaction is rolled back on every path that does not commit, so
// rejections leave no rows behind.
func (r *BookingRepository) Book(ctx context.Context, eventID string, req model.CreateBookingRequest) (*model.Booking, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	// Step 1: lock the slot.
	var maxBookings int
	var slotEventID string
	err = tx.QueryRow(ctx,
		`SELECT max_bookings, event_id
		 FROM time_slots
		 WHERE id = $1
		 FOR UPDATE`,
		req.SlotID,
	).Scan(&maxBookings, &slotEventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, storeErr("lock time slot", err)
	}
	if eventID != "" && eventID != slotEventID {
		return nil, ErrSlotNotFound
	}

	// Step 2: one booking per email per slot.
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE slot_id = $1 AND user_email = $2)`,
		req.SlotID, req.UserEmail,
	).Scan(&exists)
	if err != nil {
		return nil, storeErr("check duplicate", err)
	}
	if exists {
		return nil, ErrDuplicateBooking
	}

	// Step 3: capacity.
	count, err := currentCount(ctx, tx, req.SlotID)
	if err != nil {
		return nil, err
	}
	if count >= maxBookings {
		return nil, ErrSlotFull
	}

	// Step 4: insert.
	booking := &model.Booking{
		ID:        uuid.New().String(),
		SlotID:    req.SlotID,
		EventID:   slotEventID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		BookedAt:  r.now(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO bookings (id, slot_id, user_name, user_email, booked_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		booking.ID, booking.SlotID, booking.UserName, booking.UserEmail, booking.BookedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBooking
		}
		return nil, storeErr("insert booking", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, storeErr("commit transaction", err)
	}
	committed = true
	return booking, nil
}

// CurrentCount returns the number of committed bookings for a slot.
func (r *BookingRepository) CurrentCount(ctx context.Context, slotID string) (int, error) {
	return currentCount(ctx, r.db, slotID)
}

// Capacity returns the maximum number of bookings a slot admits.
func (r *BookingRepository) Capacity(ctx context.Context, slotID string) (int, error) {
	var capacity int
	err := r.db.QueryRow(ctx,
		`SELECT max_bookings FROM time_slots WHERE id = $1`,
		slotID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSlotNotFound
		}
		return 0, storeErr("get slot capacity", err)
	}
	return capacity, nil
}

// GetSlot returns the slot definition; MaxBookings is its capacity.
// CurrentBookings is left at zero, use CurrentCount for it.
func (r *BookingRepository) GetSlot(ctx context.Context, slotID string) (*model.TimeSlot, error) {
	var s model.TimeSlot
	err := r.db.QueryRow(ctx,
		`SELECT id, event_id, start_time, max_bookings
		 FROM time_slots WHERE id = $1`,
		slotID,
	).Scan(&s.ID, &s.EventID, &s.StartTime, &s.MaxBookings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, storeErr("get time slot", err)
	}
	return &s, nil
}

// ListByEmail returns a user's bookings, oldest first, with event and slot
// details joined in. A booking whose parents are gone is reported with
// EventRemoved set instead of failing the query.
func (r *BookingRepository) ListByEmail(ctx context.Context, email string) ([]model.BookingDetail, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.slot_id, b.user_name, b.user_email, b.booked_at,
		        s.start_time, e.id, e.title, e.description
		 FROM bookings b
		 LEFT JOIN time_slots s ON s.id = b.slot_id
		 LEFT JOIN events e ON e.id = s.event_id
		 WHERE b.user_email = $1
		 ORDER BY b.booked_at ASC, b.id ASC`,
		email,
	)
	if err != nil {
		return nil, storeErr("list user bookings", err)
	}
	defer rows.Close()

	var details []model.BookingDetail
	for rows.Next() {
		var (
			d       model.BookingDetail
			eventID *string
			title   *string
		)
		if err := rows.Scan(
			&d.ID, &d.SlotID, &d.UserName, &d.UserEmail, &d.BookedAt,
			&d.SlotStartTime, &eventID, &title, &d.EventDescription,
		); err != nil {
			return nil, storeErr("scan booking", err)
		}
		if eventID == nil || title == nil {
			d.EventRemoved = true
			d.EventTitle = model.RemovedEventTitle
		} else {
			d.EventID = *eventID
			d.EventTitle = *title
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list user bookings", err)
	}
	if len(details) == 0 {
		return nil, ErrNoBookings
	}
	return details, nil
}

// List returns every booking, oldest first. Bookings whose slot is gone are
// kept with an empty EventID.
func (r *BookingRepository) List(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.id, b.slot_id, s.event_id, b.user_name, b.user_email, b.booked_at
		 FROM bookings b
		 LEFT JOIN time_slots s ON s.id = b.slot_id
		 ORDER BY b.booked_at ASC, b.id ASC`,
	)
	if err != nil {
		return nil, storeErr("list bookings", err)
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		var (
			b       model.Booking
			eventID *string
		)
		if err := rows.Scan(&b.ID, &b.SlotID, &eventID, &b.UserName, &b.UserEmail, &b.BookedAt); err != nil {
			return nil, storeErr("scan booking", err)
		}
		if eventID != nil {
			b.EventID = *eventID
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list bookings", err)
	}
	return bookings, nil
}

func currentCount(ctx context.Context, q querier, slotID string) (int, error) {
	var n int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1`,
		slotID,
	).Scan(&n)
	if err != nil {
		return 0, storeErr("count bookings", err)
	}
	return n, nil
}
