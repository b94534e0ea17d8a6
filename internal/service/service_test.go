package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/cache"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/Shivanand-hulikatti/bookmyslot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *recordingObserver) ObserveAdmission(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

type mapCache struct {
	mu          sync.Mutex
	events      map[string]model.EventSummary
	list        []model.EventSummary
	hasList     bool
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{events: make(map[string]model.EventSummary)}
}

func (c *mapCache) GetEvent(_ context.Context, id string) (*model.EventSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.events[id]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (c *mapCache) SetEvent(_ context.Context, s *model.EventSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[s.ID] = *s
}

func (c *mapCache) GetEventList(context.Context) ([]model.EventSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list, c.hasList
}

func (c *mapCache) SetEventList(_ context.Context, list []model.EventSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list, c.hasList = list, true
}

func (c *mapCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.events, id)
	c.list, c.hasList = nil, false
	c.invalidated = append(c.invalidated, id)
}

type fixture struct {
	events   *EventService
	bookings *BookingService
	observer *recordingObserver
	cache    *mapCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := NewValidator()
	obs := &recordingObserver{}
	c := newMapCache()
	return &fixture{
		events:   NewEventService(store.Events(), c, v, logger),
		bookings: NewBookingService(store.Bookings(), c, obs, v, logger),
		observer: obs,
		cache:    c,
	}
}

func syncEvent(capacity int) model.CreateEventRequest {
	return model.CreateEventRequest{
		Title: "Sync",
		Slots: []model.CreateSlotRequest{{
			StartTime:   time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC),
			MaxBookings: capacity,
		}},
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	longDesc := strings.Repeat("d", 501)

	tests := []struct {
		name      string
		req       model.CreateEventRequest
		wantField string
	}{
		{
			name:      "empty slots",
			req:       model.CreateEventRequest{Title: "Sync", Slots: []model.CreateSlotRequest{}},
			wantField: "slots",
		},
		{
			name:      "missing slots",
			req:       model.CreateEventRequest{Title: "Sync"},
			wantField: "slots",
		},
		{
			name:      "blank title",
			req:       model.CreateEventRequest{Title: "   ", Slots: []model.CreateSlotRequest{{StartTime: start, MaxBookings: 1}}},
			wantField: "title",
		},
		{
			name:      "title too long",
			req:       model.CreateEventRequest{Title: strings.Repeat("t", 101), Slots: []model.CreateSlotRequest{{StartTime: start, MaxBookings: 1}}},
			wantField: "title",
		},
		{
			name:      "description too long",
			req:       model.CreateEventRequest{Title: "Sync", Description: &longDesc, Slots: []model.CreateSlotRequest{{StartTime: start, MaxBookings: 1}}},
			wantField: "description",
		},
		{
			name:      "zero capacity",
			req:       model.CreateEventRequest{Title: "Sync", Slots: []model.CreateSlotRequest{{StartTime: start, MaxBookings: 0}}},
			wantField: "slots[0].max_bookings",
		},
		{
			name:      "capacity above integer column range",
			req:       model.CreateEventRequest{Title: "Sync", Slots: []model.CreateSlotRequest{{StartTime: start, MaxBookings: 2147483648}}},
			wantField: "slots[0].max_bookings",
		},
		{
			name:      "missing start time",
			req:       model.CreateEventRequest{Title: "Sync", Slots: []model.CreateSlotRequest{{MaxBookings: 2}}},
			wantField: "slots[0].start_time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.events.CreateEvent(ctx, tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.NotEmpty(t, verrs)
			assert.Equal(t, tt.wantField, verrs[0].Field)
		})
	}

	events, err := f.events.ListEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateEvent_Summary(t *testing.T) {
	f := newFixture(t)
	desc := "  Weekly sync  "
	req := syncEvent(3)
	req.Title = "  Sync  "
	req.Description = &desc
	req.Slots = append(req.Slots, model.CreateSlotRequest{
		StartTime:   time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC),
		MaxBookings: 2,
	})

	summary, err := f.events.CreateEvent(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Sync", summary.Title)
	require.NotNil(t, summary.Description)
	assert.Equal(t, "Weekly sync", *summary.Description)
	assert.Equal(t, 2, summary.TotalSlots)
	assert.Equal(t, 5, summary.AvailableSlots)
	require.Len(t, summary.Slots, 2)
	assert.Equal(t, 9, summary.Slots[0].StartTime.Hour())
}

func TestSyncScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.events.CreateEvent(ctx, syncEvent(1))
	require.NoError(t, err)
	slotID := summary.Slots[0].ID
	assert.Equal(t, 1, summary.AvailableSlots)

	booking, err := f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: slotID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, slotID, booking.SlotID)
	assert.Equal(t, summary.ID, booking.EventID)
	assert.False(t, booking.BookedAt.IsZero())

	got, err := f.events.GetEvent(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableSlots)
	assert.Equal(t, 1, got.Slots[0].CurrentBookings)

	_, err = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: slotID, UserName: "Bob", UserEmail: "b@x.com",
	})
	require.ErrorIs(t, err, repository.ErrSlotFull)

	_, err = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: slotID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.ErrorIs(t, err, repository.ErrDuplicateBooking)

	assert.Equal(t, map[string]int{
		OutcomeAdmitted:  1,
		OutcomeSlotFull:  1,
		OutcomeDuplicate: 1,
	}, f.observer.outcomes)
}

func TestCreateBooking_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	summary, err := f.events.CreateEvent(ctx, syncEvent(5))
	require.NoError(t, err)
	slotID := summary.Slots[0].ID

	tests := []struct {
		name string
		req  model.CreateBookingRequest
	}{
		{"short name", model.CreateBookingRequest{SlotID: slotID, UserName: "A", UserEmail: "a@x.com"}},
		{"long name", model.CreateBookingRequest{SlotID: slotID, UserName: strings.Repeat("n", 101), UserEmail: "a@x.com"}},
		{"bad email", model.CreateBookingRequest{SlotID: slotID, UserName: "Ann", UserEmail: "not-an-email"}},
		{"missing slot", model.CreateBookingRequest{UserName: "Ann", UserEmail: "a@x.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(ctx, "", tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	slot, err := f.bookings.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 0, slot.CurrentBookings)
	assert.Equal(t, len(tests), f.observer.outcomes[OutcomeInvalidInput])
}

func TestCreateBooking_ScopedToEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.events.CreateEvent(ctx, syncEvent(2))
	require.NoError(t, err)
	second, err := f.events.CreateEvent(ctx, syncEvent(2))
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(ctx, second.ID, model.CreateBookingRequest{
		SlotID: first.Slots[0].ID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.bookings.CreateBooking(ctx, first.ID, model.CreateBookingRequest{
		SlotID: first.Slots[0].ID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.NoError(t, err)
}

func TestCreateBooking_ConcurrentLastSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	summary, err := f.events.CreateEvent(ctx, syncEvent(1))
	require.NoError(t, err)
	slotID := summary.Slots[0].ID

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
				SlotID: slotID, UserName: "User", UserEmail: fmt.Sprintf("u%d@x.com", i),
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if errors.Is(err, repository.ErrSlotFull) {
			full++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, full)
}

func TestCreateBooking_CapacityNeverExceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	summary, err := f.events.CreateEvent(ctx, syncEvent(7))
	require.NoError(t, err)
	slotID := summary.Slots[0].ID

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
				SlotID: slotID, UserName: "User", UserEmail: fmt.Sprintf("u%d@x.com", i%25),
			})
		}(i)
	}
	wg.Wait()

	slot, err := f.bookings.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, 7, slot.CurrentBookings)
	assert.Equal(t, 0, slot.Available)
}

func TestCreateBooking_InvalidatesSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	summary, err := f.events.CreateEvent(ctx, syncEvent(2))
	require.NoError(t, err)

	_, err = f.events.GetEvent(ctx, summary.ID)
	require.NoError(t, err)
	_, cached := f.cache.GetEvent(ctx, summary.ID)
	require.True(t, cached)

	_, err = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: summary.Slots[0].ID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.NoError(t, err)

	_, cached = f.cache.GetEvent(ctx, summary.ID)
	assert.False(t, cached)
	got, err := f.events.GetEvent(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AvailableSlots)
}

func TestProjectionIsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := NewEventService(store.Events(), cache.Nop{}, NewValidator(), logger)
	ctx := context.Background()

	req := syncEvent(2)
	req.Slots = append(req.Slots, model.CreateSlotRequest{StartTime: req.Slots[0].StartTime, MaxBookings: 4})
	summary, err := events.CreateEvent(ctx, req)
	require.NoError(t, err)

	a, err := events.GetEvent(ctx, summary.ID)
	require.NoError(t, err)
	b, err := events.GetEvent(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	l1, err := events.ListEvents(ctx)
	require.NoError(t, err)
	l2, err := events.ListEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, l1, l2)
}

func TestProjectEvent_ClampsAvailability(t *testing.T) {
	start := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	summary := projectEvent(model.Event{
		ID:    "ev-1",
		Title: "Sync",
		Slots: []model.TimeSlot{
			{ID: "b", StartTime: start, MaxBookings: 2, CurrentBookings: 5},
			{ID: "a", StartTime: start, MaxBookings: 3, CurrentBookings: 1},
		},
	})
	assert.Equal(t, 2, summary.TotalSlots)
	assert.Equal(t, 2, summary.AvailableSlots)
	assert.Equal(t, "a", summary.Slots[0].ID)
	assert.Equal(t, 0, summary.Slots[1].Available)
}

func TestListEvents_Order(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, title := range []string{"First", "Second", "Third"} {
		req := syncEvent(1)
		req.Title = title
		_, err := f.events.CreateEvent(ctx, req)
		require.NoError(t, err)
	}

	events, err := f.events.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "First", events[0].Title)
	assert.Equal(t, "Third", events[2].Title)
}

func TestGetEvent_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.events.GetEvent(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	summary, err := f.events.CreateEvent(ctx, syncEvent(1))
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: summary.Slots[0].ID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.NoError(t, err)

	require.NoError(t, f.events.DeleteEvent(ctx, summary.ID))
	assert.Contains(t, f.cache.invalidated, summary.ID)

	_, err = f.events.GetEvent(ctx, summary.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.bookings.ListUserBookings(ctx, "a@x.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, f.events.DeleteEvent(ctx, summary.ID), repository.ErrNotFound)
}

func TestListUserBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.ListUserBookings(ctx, "nobody@x.com")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.bookings.ListUserBookings(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidInput)

	summary, err := f.events.CreateEvent(ctx, syncEvent(3))
	require.NoError(t, err)
	_, err = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: summary.Slots[0].ID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.NoError(t, err)

	details, err := f.bookings.ListUserBookings(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Sync", details[0].EventTitle)
	assert.Equal(t, summary.ID, details[0].EventID)
	require.NotNil(t, details[0].SlotStartTime)
	assert.True(t, details[0].SlotStartTime.Equal(summary.Slots[0].StartTime))

	all, err := f.bookings.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	summary, err := f.events.CreateEvent(ctx, syncEvent(4))
	require.NoError(t, err)
	slotID := summary.Slots[0].ID

	_, err = f.bookings.CreateBooking(ctx, "", model.CreateBookingRequest{
		SlotID: slotID, UserName: "Ann", UserEmail: "a@x.com",
	})
	require.NoError(t, err)

	slot, err := f.bookings.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, slot.EventID)
	assert.Equal(t, 4, slot.MaxBookings)
	assert.Equal(t, 1, slot.CurrentBookings)
	assert.Equal(t, 3, slot.Available)

	_, err = f.bookings.GetSlot(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

type failingBookingStore struct {
	BookingStore
	err error
}

func (s failingBookingStore) Book(context.Context, string, model.CreateBookingRequest) (*model.Booking, error) {
	return nil, s.err
}

func TestCreateBooking_StoreError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	obs := &recordingObserver{}
	c := newMapCache()
	storeErr := &repository.StoreError{Op: "insert booking", Err: errors.New("disk full")}
	svc := NewBookingService(failingBookingStore{err: storeErr}, c, obs, NewValidator(), logger)

	_, err := svc.CreateBooking(context.Background(), "", model.CreateBookingRequest{
		SlotID: "slot-1", UserName: "Ann", UserEmail: "a@x.com",
	})
	var se *repository.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, obs.outcomes[OutcomeStoreError])
	assert.Empty(t, c.invalidated)
}
