package ledger

import (
	"errors"

	"servicehub/internal/domain/booking"
)

var (
	ErrValidation                = errors.New("validation error")
	ErrInvalidAmount             = errors.New("amount must be positive")
	ErrBookingNotFound           = booking.ErrBookingNotFound
	ErrAlreadyPaid               = errors.New("booking already paid")
	ErrAmountMismatch            = errors.New("payment amount does not match booking amount")
	ErrBookingNotPayable         = errors.New("booking cannot be paid")
	ErrPaymentConfirmationFailed = errors.New("payment confirmation failed")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrPaymentNotFound           = errors.New("payment not found")
	ErrPaymentNotPending         = errors.New("payment is not pending")
)
