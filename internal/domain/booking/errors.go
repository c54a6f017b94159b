package booking

import "errors"

var (
	ErrValidation                = errors.New("validation error")
	ErrSlotUnavailable           = errors.New("slot unavailable")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidStatusTransition   = errors.New("invalid_status_transition")
	ErrBookingNotFound           = errors.New("booking not found")
	ErrInvalidCancellationReason = errors.New("cancellation reason must be between 10 and 100 characters")
)
