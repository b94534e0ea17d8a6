package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
	"github.com/google/uuid"
)

// MemoryStore keeps events, slots and bookings in process memory. A single
// mutex guards every write, which makes each admission one indivisible
// check-and-insert.
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string]*model.Event // Slots left empty; see slots.
	order    []string
	slots    map[string]*model.TimeSlot
	bookings []model.Booking
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*model.Event),
		slots:  make(map[string]*model.TimeSlot),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Events returns the event repository view of the store.
func (m *MemoryStore) Events() *MemoryEventRepository { return &MemoryEventRepository{m: m} }

// Bookings returns the booking repository view of the store.
func (m *MemoryStore) Bookings() *MemoryBookingRepository { return &MemoryBookingRepository{m: m} }

// countLocked returns committed bookings for slotID. m.mu must be held.
func (m *MemoryStore) countLocked(slotID string) int {
	n := 0
	for _, b := range m.bookings {
		if b.SlotID == slotID {
			n++
		}
	}
	return n
}

// eventLocked assembles a copy of an event with slot counts. m.mu must be held.
func (m *MemoryStore) eventLocked(id string) model.Event {
	e := *m.events[id]
	e.Slots = []model.TimeSlot{}
	for _, s := range m.slots {
		if s.EventID == id {
			slot := *s
			slot.CurrentBookings = m.countLocked(s.ID)
			e.Slots = append(e.Slots, slot)
		}
	}
	sort.Slice(e.Slots, func(i, j int) bool {
		if !e.Slots[i].StartTime.Equal(e.Slots[j].StartTime) {
			return e.Slots[i].StartTime.Before(e.Slots[j].StartTime)
		}
		return e.Slots[i].ID < e.Slots[j].ID
	})
	return e
}

// MemoryEventRepository is the in-memory counterpart of EventRepository.
type MemoryEventRepository struct {
	m *MemoryStore
}

// Create stores an event and its slots.
func (r *MemoryEventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("create event", err)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	event := &model.Event{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   r.m.now(),
	}
	r.m.events[event.ID] = event
	r.m.order = append(r.m.order, event.ID)

	for _, s := range req.Slots {
		slot := &model.TimeSlot{
			ID:          uuid.New().String(),
			EventID:     event.ID,
			StartTime:   s.StartTime.UTC(),
			MaxBookings: s.MaxBookings,
		}
		r.m.slots[slot.ID] = slot
	}

	out := r.m.eventLocked(event.ID)
	return &out, nil
}

// List returns all events in insertion order.
func (r *MemoryEventRepository) List(ctx context.Context) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list events", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	events := make([]model.Event, 0, len(r.m.order))
	for _, id := range r.m.order {
		events = append(events, r.m.eventLocked(id))
	}
	return events, nil
}

// GetByID returns a single event or ErrEventNotFound.
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("get event", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if _, ok := r.m.events[id]; !ok {
		return nil, ErrEventNotFound
	}
	e := r.m.eventLocked(id)
	return &e, nil
}

// Delete removes an event, its slots and their bookings.
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return storeErr("delete event", err)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.m.events, id)
	for i, eid := range r.m.order {
		if eid == id {
			r.m.order = append(r.m.order[:i], r.m.order[i+1:]...)
			break
		}
	}

	removed := make(map[string]struct{})
	for sid, s := range r.m.slots {
		if s.EventID == id {
			removed[sid] = struct{}{}
			delete(r.m.slots, sid)
		}
	}
	kept := r.m.bookings[:0]
	for _, b := range r.m.bookings {
		if _, gone := removed[b.SlotID]; !gone {
			kept = append(kept, b)
		}
	}
	r.m.bookings = kept
	return nil
}

// MemoryBookingRepository is the in-memory counterpart of BookingRepository.
type MemoryBookingRepository struct {
	m *MemoryStore
}

// Book admits a booking under the store's write lock.
func (r *MemoryBookingRepository) Book(ctx context.Context, eventID string, req model.CreateBookingRequest) (*model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("book", err)
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	slot, ok := r.m.slots[req.SlotID]
	if !ok || (eventID != "" && slot.EventID != eventID) {
		return nil, ErrSlotNotFound
	}
	for _, b := range r.m.bookings {
		if b.SlotID == req.SlotID && b.UserEmail == req.UserEmail {
			return nil, ErrDuplicateBooking
		}
	}
	if r.m.countLocked(req.SlotID) >= slot.MaxBookings {
		return nil, ErrSlotFull
	}

	booking := model.Booking{
		ID:        uuid.New().String(),
		SlotID:    slot.ID,
		EventID:   slot.EventID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		BookedAt:  r.m.now(),
	}
	r.m.bookings = append(r.m.bookings, booking)
	return &booking, nil
}

// CurrentCount returns the number of committed bookings for a slot.
func (r *MemoryBookingRepository) CurrentCount(ctx context.Context, slotID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr("count bookings", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return r.m.countLocked(slotID), nil
}

// Capacity returns the slot's maximum bookings or ErrSlotNotFound.
func (r *MemoryBookingRepository) Capacity(ctx context.Context, slotID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, storeErr("get slot capacity", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.slots[slotID]
	if !ok {
		return 0, ErrSlotNotFound
	}
	return s.MaxBookings, nil
}

// GetSlot returns the slot definition or ErrSlotNotFound.
func (r *MemoryBookingRepository) GetSlot(ctx context.Context, slotID string) (*model.TimeSlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("get time slot", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	out := *s
	return &out, nil
}

// ListByEmail returns a user's bookings with event and slot details.
func (r *MemoryBookingRepository) ListByEmail(ctx context.Context, email string) ([]model.BookingDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list user bookings", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var details []model.BookingDetail
	for _, b := range r.m.bookings {
		if b.UserEmail != email {
			continue
		}
		d := model.BookingDetail{Booking: b}
		slot, ok := r.m.slots[b.SlotID]
		var event *model.Event
		if ok {
			start := slot.StartTime
			d.SlotStartTime = &start
			event = r.m.events[slot.EventID]
		}
		if event == nil {
			d.EventID = ""
			d.EventRemoved = true
			d.EventTitle = model.RemovedEventTitle
		} else {
			d.EventTitle = event.Title
			d.EventDescription = event.Description
		}
		details = append(details, d)
	}
	if len(details) == 0 {
		return nil, ErrNoBookings
	}
	return details, nil
}

// List returns every booking in commit order.
func (r *MemoryBookingRepository) List(ctx context.Context) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr("list bookings", err)
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	out := make([]model.Booking, len(r.m.bookings))
	copy(out, r.m.bookings)
	return out, nil
}
