package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool needed to apply the schema.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Schema creates the events, time_slots and bookings tables. Ownership is
// expressed with ON DELETE CASCADE and unique_booking backs up the
// application-level duplicate check.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	title       VARCHAR(100) NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS time_slots (
	id           TEXT PRIMARY KEY,
	event_id     TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	start_time   TIMESTAMPTZ NOT NULL,
	max_bookings INTEGER NOT NULL DEFAULT 1 CHECK (max_bookings >= 1)
);

CREATE INDEX IF NOT EXISTS idx_time_slots_event_id ON time_slots (event_id);

CREATE TABLE IF NOT EXISTS bookings (
	id         TEXT PRIMARY KEY,
	slot_id    TEXT NOT NULL REFERENCES time_slots(id) ON DELETE CASCADE,
	user_name  VARCHAR(100) NOT NULL,
	user_email VARCHAR(255) NOT NULL,
	booked_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT unique_booking UNIQUE (slot_id, user_email)
);

CREATE INDEX IF NOT EXISTS idx_bookings_user_email ON bookings (user_email);
`

// Migrate applies Schema. Every statement is idempotent.
func Migrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
