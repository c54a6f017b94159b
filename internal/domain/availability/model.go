package availability

import "time"

// FixedSlot is one entry of a worker's recurring weekly template.
type FixedSlot struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	WorkerID    int64  `json:"worker_id" gorm:"not null;uniqueIndex:ux_fixed_slot,priority:1"`
	DayOfWeek   int    `json:"day_of_week" gorm:"not null;uniqueIndex:ux_fixed_slot,priority:2"`
	TimeRange   string `json:"time_range" gorm:"type:varchar(11);not null;uniqueIndex:ux_fixed_slot,priority:3"`
	StartMinute int    `json:"-" gorm:"not null"`
	EndMinute   int    `json:"-" gorm:"not null"`
	Enabled     bool   `json:"enabled" gorm:"not null"`
}

func (FixedSlot) TableName() string { return "fixed_slots" }

func (s FixedSlot) Range() TimeRange {
	return TimeRange{Start: s.StartMinute, End: s.EndMinute}
}

// DateSlot is a concrete slot on one calendar date.
type DateSlot struct {
	ID          int64  `json:"id" gorm:"primaryKey"`
	WorkerID    int64  `json:"worker_id" gorm:"not null;uniqueIndex:ux_date_slot,priority:1"`
	Date        string `json:"date" gorm:"type:varchar(10);not null;uniqueIndex:ux_date_slot,priority:2"`
	TimeRange   string `json:"time_range" gorm:"type:varchar(11);not null;uniqueIndex:ux_date_slot,priority:3"`
	StartMinute int    `json:"-" gorm:"not null"`
	EndMinute   int    `json:"-" gorm:"not null"`
	Booked      bool   `json:"booked" gorm:"not null"`
}

func (DateSlot) TableName() string { return "date_slots" }

func (s DateSlot) Range() TimeRange {
	return TimeRange{Start: s.StartMinute, End: s.EndMinute}
}

type UnavailableDate struct {
	ID       int64  `json:"-" gorm:"primaryKey"`
	WorkerID int64  `json:"worker_id" gorm:"not null;uniqueIndex:ux_unavailable_date,priority:1"`
	Date     string `json:"date" gorm:"type:varchar(10);not null;uniqueIndex:ux_unavailable_date,priority:2"`
}

func (UnavailableDate) TableName() string { return "unavailable_dates" }

// Availability is the full bookable-time aggregate of one worker.
type Availability struct {
	WorkerID         int64
	FixedSlots       []FixedSlot
	DateSlots        []DateSlot
	UnavailableDates []string
}

func (a *Availability) IsBlocked(date string) bool {
	for _, d := range a.UnavailableDates {
		if d == date {
			return true
		}
	}
	return false
}

// Slot is one entry of a resolved day. Booked date slots are kept so
// clients can render them as taken.
type Slot struct {
	Ref       SlotRef   `json:"-"`
	ID        string    `json:"slot_id"`
	Kind      string    `json:"kind"`
	Date      string    `json:"date"`
	TimeRange string    `json:"time_range"`
	StartsAt  time.Time `json:"starts_at"`
	Booked    bool      `json:"booked"`
}

// FixedSlotInput is one weekly template entry supplied by a worker.
type FixedSlotInput struct {
	Day       time.Weekday
	TimeRange string
	Enabled   bool
}

// Models lists the tables owned by this package, for AutoMigrate.
func Models() []any {
	return []any{&FixedSlot{}, &DateSlot{}, &UnavailableDate{}}
}
