package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Service builds domain events and hands them to a Dispatcher. Dispatch
// errors are logged and never returned: a notification failure must not undo
// a committed booking or payment.
type Service struct {
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{dispatcher: dispatcher, logger: logger, now: time.Now}
}

// BookingEvent carries what recipients need to identify a booking.
type BookingEvent struct {
	BookingID   int64
	WorkerID    int64
	UserID      int64
	Date        string
	TimeRange   string
	ServiceName string
	Reason      string
}

func (s *Service) NotifyBookingReserved(ctx context.Context, e BookingEvent) {
	s.send(ctx, TypeBookingReserved, e)
}

// NotifyBookingAccepted also tells the surrounding product to open the chat
// channel between customer and worker.
func (s *Service) NotifyBookingAccepted(ctx context.Context, e BookingEvent) {
	s.send(ctx, TypeBookingAccepted, e)
}

func (s *Service) NotifyBookingRejected(ctx context.Context, e BookingEvent) {
	s.send(ctx, TypeBookingRejected, e)
}

func (s *Service) NotifyBookingCancelled(ctx context.Context, e BookingEvent) {
	s.send(ctx, TypeBookingCancelled, e)
}

func (s *Service) NotifyBookingCompleted(ctx context.Context, e BookingEvent) {
	s.send(ctx, TypeBookingCompleted, e)
}

func (s *Service) NotifyPaymentConfirmed(ctx context.Context, bookingID, workerID, userID, amount, workerShare int64) {
	s.dispatch(ctx, Message{
		Type:      TypePaymentConfirmed,
		BookingID: bookingID,
		WorkerID:  workerID,
		UserID:    userID,
		Data: map[string]any{
			"amount":       amount,
			"worker_share": workerShare,
		},
	})
}

func (s *Service) NotifyWithdrawal(ctx context.Context, workerID, amount, balance int64) {
	s.dispatch(ctx, Message{
		Type:     TypeWalletWithdrawn,
		WorkerID: workerID,
		Data: map[string]any{
			"amount":  amount,
			"balance": balance,
		},
	})
}

func (s *Service) send(ctx context.Context, t Type, e BookingEvent) {
	data := map[string]any{
		"date":         e.Date,
		"time_range":   e.TimeRange,
		"service_name": e.ServiceName,
	}
	if e.Reason != "" {
		data["reason"] = e.Reason
	}

	s.dispatch(ctx, Message{
		Type:      t,
		BookingID: e.BookingID,
		WorkerID:  e.WorkerID,
		UserID:    e.UserID,
		Data:      data,
	})
}

func (s *Service) dispatch(ctx context.Context, msg Message) {
	if s == nil || s.dispatcher == nil {
		return
	}
	msg.OccurredAt = s.now().UTC()

	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Warn("Notification dispatch failed",
			zap.String("type", string(msg.Type)),
			zap.Int64("booking_id", msg.BookingID),
			zap.Error(err),
		)
	}
}
