package availability

import (
	"sort"
	"time"
)

// ResolveSlots merges the weekly template with the date-specific slots of av
// for the given calendar date and returns them in chronological order.
//
// Date slots win over template entries with the same time range. A blocked
// date, a past date, or a date outside the booking window yields no slots.
// When date is today, slots that have already started are dropped.
func ResolveSlots(av *Availability, date, now time.Time, windowDays int) []Slot {
	out := []Slot{}
	if av == nil {
		return out
	}

	if !InWindow(date, now, windowDays) {
		return out
	}

	now = now.In(date.Location())
	today := startOfDay(now)
	day := startOfDay(date)

	dateStr := FormatDate(day)
	if av.IsBlocked(dateStr) {
		return out
	}

	byRange := make(map[string]Slot)
	for _, fs := range av.FixedSlots {
		if !fs.Enabled || time.Weekday(fs.DayOfWeek) != day.Weekday() {
			continue
		}
		ref := FixedRef{Day: day.Weekday(), TimeRange: fs.Range()}
		byRange[fs.TimeRange] = newSlot(ref, dateStr, day, false)
	}
	for _, ds := range av.DateSlots {
		if ds.Date != dateStr {
			continue
		}
		ref := DateRef{Date: ds.Date, SlotID: ds.ID, TimeRange: ds.Range()}
		byRange[ds.TimeRange] = newSlot(ref, dateStr, day, ds.Booked)
	}

	isToday := day.Equal(today)
	for _, s := range byRange {
		if isToday && !s.StartsAt.After(now) {
			continue
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Ref.Range(), out[j].Ref.Range()
		if ri.Start != rj.Start {
			return ri.Start < rj.Start
		}
		return ri.End < rj.End
	})

	return out
}

func newSlot(ref SlotRef, dateStr string, day time.Time, booked bool) Slot {
	return Slot{
		Ref:       ref,
		ID:        SlotID(ref),
		Kind:      ref.Kind(),
		Date:      dateStr,
		TimeRange: ref.Range().String(),
		StartsAt:  ref.Range().StartAt(day),
		Booked:    booked,
	}
}

// InWindow reports whether date can be booked at now.
func InWindow(date, now time.Time, windowDays int) bool {
	now = now.In(date.Location())
	today := startOfDay(now)
	day := startOfDay(date)
	return !day.Before(today) && day.Before(today.AddDate(0, 0, windowDays))
}
