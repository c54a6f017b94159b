package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher hands a message to whatever delivers notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// LogDispatcher only logs messages. It is used when no broker is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.logger.Info("Notification",
		zap.String("type", string(msg.Type)),
		zap.Int64("booking_id", msg.BookingID),
		zap.Int64("worker_id", msg.WorkerID),
		zap.Int64("user_id", msg.UserID),
	)
	return nil
}

// Async runs the wrapped dispatcher in the background so callers never wait
// on delivery. Each message gets its own timeout, detached from the caller's
// context so a finished request does not cancel it.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Dispatcher, timeout time.Duration, logger *zap.Logger) *Async {
	return &Async{next: next, timeout: timeout, logger: logger}
}

func (a *Async) Dispatch(ctx context.Context, msg Message) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		if err := a.next.Dispatch(ctx, msg); err != nil {
			a.logger.Warn("Notification dispatch failed",
				zap.String("type", string(msg.Type)),
				zap.Int64("booking_id", msg.BookingID),
				zap.Error(err),
			)
		}
	}()
	return nil
}

// Wait blocks until every in-flight dispatch has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
