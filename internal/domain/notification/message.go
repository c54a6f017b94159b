package notification

import "time"

// Type is the routing key of a domain event.
type Type string

const (
	TypeBookingReserved  Type = "booking.reserved"
	TypeBookingAccepted  Type = "booking.accepted"
	TypeBookingRejected  Type = "booking.rejected"
	TypeBookingCancelled Type = "booking.cancelled"
	TypeBookingCompleted Type = "booking.completed"
	TypePaymentConfirmed Type = "payment.confirmed"
	TypeWalletWithdrawn  Type = "wallet.withdrawn"
)

// Message is the payload handed to a Dispatcher. Recipients are the worker
// and, for booking events, the customer.
type Message struct {
	Type       Type           `json:"type"`
	BookingID  int64          `json:"booking_id,omitempty"`
	WorkerID   int64          `json:"worker_id"`
	UserID     int64          `json:"user_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
