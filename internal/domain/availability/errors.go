package availability

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidSlotID    = errors.New("invalid slot id")
	ErrOverlappingSlots = errors.New("slots overlap")
	ErrSlotNotFound     = errors.New("slot not found")
	ErrSlotUnavailable  = errors.New("slot unavailable")
	ErrSlotInUse        = errors.New("slot is referenced by an active booking")
)
