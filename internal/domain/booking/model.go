package booking

import (
	"time"

	"github.com/google/uuid"

	"servicehub/internal/domain/availability"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// IsActive reports whether a booking in this status still holds its slot.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

const (
	PaymentMethodOnline = "online"
	PaymentMethodCOD    = "cod"
)

type Booking struct {
	ID                 int64      `json:"id" gorm:"primaryKey"`
	WorkerID           int64      `json:"worker_id" gorm:"not null;index"`
	UserID             int64      `json:"user_id" gorm:"not null;index"`
	SlotKind           string     `json:"slot_kind" gorm:"type:varchar(8);not null"`
	SlotDay            *int       `json:"slot_day,omitempty"`
	DateSlotID         *int64     `json:"date_slot_id,omitempty"`
	TimeRange          string     `json:"time_range" gorm:"type:varchar(11);not null"`
	Date               string     `json:"date" gorm:"type:varchar(10);not null"`
	ServiceName        string     `json:"service_name" gorm:"type:varchar(255);not null"`
	Amount             int64      `json:"amount" gorm:"not null"`
	PaymentMethod      string     `json:"payment_method" gorm:"type:varchar(16);not null"`
	Status             Status     `json:"status" gorm:"type:varchar(16);not null;index"`
	PaymentID          *uuid.UUID `json:"payment_id,omitempty" gorm:"type:uuid;uniqueIndex"`
	CancellationReason string     `json:"cancellation_reason,omitempty" gorm:"type:varchar(100)"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// Slot rebuilds the reference of the slot this booking holds.
func (b *Booking) Slot() availability.SlotRef {
	r, _ := availability.ParseTimeRange(b.TimeRange)

	if b.SlotKind == availability.SlotKindFixed {
		var day time.Weekday
		if b.SlotDay != nil {
			day = time.Weekday(*b.SlotDay)
		}
		return availability.FixedRef{Day: day, TimeRange: r}
	}

	var id int64
	if b.DateSlotID != nil {
		id = *b.DateSlotID
	}
	return availability.DateRef{Date: b.Date, SlotID: id, TimeRange: r}
}

// IsParticipant reports whether actorID is the customer or the worker.
func (b *Booking) IsParticipant(actorID int64) bool {
	return actorID != 0 && (b.UserID == actorID || b.WorkerID == actorID)
}

func setSlot(b *Booking, ref availability.SlotRef) {
	b.SlotKind = ref.Kind()
	b.TimeRange = ref.Range().String()

	switch r := ref.(type) {
	case availability.FixedRef:
		day := int(r.Day)
		b.SlotDay = &day
	case availability.DateRef:
		id := r.SlotID
		b.DateSlotID = &id
	}
}

type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
