// Package repository implements persistence for events, time slots and
// bookings. The PostgreSQL implementation uses pgx directly (no ORM); an
// in-memory implementation satisfies the same contracts for development and
// tests.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by the repositories. Each call
// acquires a pooled connection and releases it when the call (or the
// transaction returned by Begin) completes.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both DB and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventRepository handles persistence for events and their slots.
type EventRepository struct {
	db  DB
	now func() time.Time
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts an event together with all of its slots in one transaction.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   r.now(),
		Slots:       make([]model.TimeSlot, 0, len(req.Slots)),
	}

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

	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, title, description, created_at)
		 VALUES ($1, $2, $3, $4)`,
		event.ID, event.Title, event.Description, event.CreatedAt,
	)
	if err != nil {
		return nil, storeErr("insert event", err)
	}

	for _, s := range req.Slots {
		slot := model.TimeSlot{
			ID:          uuid.New().String(),
			EventID:     event.ID,
			StartTime:   s.StartTime.UTC(),
			MaxBookings: s.MaxBookings,
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO time_slots (id, event_id, start_time, max_bookings)
			 VALUES ($1, $2, $3, $4)`,
			slot.ID, slot.EventID, slot.StartTime, slot.MaxBookings,
		)
		if err != nil {
			return nil, storeErr("insert time slot", err)
		}
		event.Slots = append(event.Slots, slot)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, storeErr("commit transaction", err)
	}
	committed = true
	return event, nil
}

// List returns all events, oldest first, each with its slots and committed
// booking counts.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, created_at
		 FROM events
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	var events []model.Event
	index := make(map[string]int)
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.CreatedAt); err != nil {
			return nil, storeErr("scan event", err)
		}
		e.Slots = []model.TimeSlot{}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list events", err)
	}
	if len(events) == 0 {
		return events, nil
	}

	slots, err := listSlots(ctx, r.db,
		`SELECT s.id, s.event_id, s.start_time, s.max_bookings, COUNT(b.id)
		 FROM time_slots s
		 LEFT JOIN bookings b ON b.slot_id = s.id
		 GROUP BY s.id
		 ORDER BY s.start_time ASC, s.id ASC`,
	)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		// Slots of events created after the first query are skipped.
		if i, ok := index[s.EventID]; ok {
			events[i].Slots = append(events[i].Slots, s)
		}
	}
	return events, nil
}

// GetByID returns a single event with its slots or ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, storeErr("get event", err)
	}

	e.Slots, err = listSlots(ctx, r.db,
		`SELECT s.id, s.event_id, s.start_time, s.max_bookings, COUNT(b.id)
		 FROM time_slots s
		 LEFT JOIN bookings b ON b.slot_id = s.id
		 WHERE s.event_id = $1
		 GROUP BY s.id
		 ORDER BY s.start_time ASC, s.id ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes an event. Its slots and their bookings go with it through
// ON DELETE CASCADE.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func listSlots(ctx context.Context, q querier, sql string, args ...any) ([]model.TimeSlot, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr("list time slots", err)
	}
	defer rows.Close()

	slots := []model.TimeSlot{}
	for rows.Next() {
		var s model.TimeSlot
		if err := rows.Scan(&s.ID, &s.EventID, &s.StartTime, &s.MaxBookings, &s.CurrentBookings); err != nil {
			return nil, storeErr("scan time slot", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list time slots", fmt.Errorf("rows: %w", err))
	}
	return slots, nil
}
