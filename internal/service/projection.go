package service

import (
	"sort"

	"github.com/Shivanand-hulikatti/bookmyslot/internal/model"
)

// projectSlot derives the availability of one slot.
func projectSlot(s model.TimeSlot) model.SlotSummary {
	return model.SlotSummary{
		ID:              s.ID,
		EventID:         s.EventID,
		StartTime:       s.StartTime,
		MaxBookings:     s.MaxBookings,
		CurrentBookings: s.CurrentBookings,
		Available:       s.Available(),
	}
}

// projectEvent aggregates an event's slots into a summary. Slots are ordered
// by start time, then id, so equal inputs give equal outputs.
func projectEvent(e model.Event) model.EventSummary {
	slots := make([]model.TimeSlot, len(e.Slots))
	copy(slots, e.Slots)
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].ID < slots[j].ID
	})

	summary := model.EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		TotalSlots:  len(slots),
		Slots:       make([]model.SlotSummary, 0, len(slots)),
	}
	for _, s := range slots {
		ps := projectSlot(s)
		ps.EventID = ""
		summary.AvailableSlots += ps.Available
		summary.Slots = append(summary.Slots, ps)
	}
	return summary
}

func projectEvents(events []model.Event) []model.EventSummary {
	out := make([]model.EventSummary, 0, len(events))
	for _, e := range events {
		out = append(out, projectEvent(e))
	}
	return out
}
