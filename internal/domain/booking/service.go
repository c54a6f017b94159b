package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"servicehub/internal/database"
	"servicehub/internal/domain/availability"
	"servicehub/internal/domain/notification"
	"servicehub/internal/domain/worker"
	"servicehub/internal/telemetry"
)

type ReserveInput struct {
	WorkerID      int64
	UserID        int64
	Date          string
	Slot          availability.SlotRef
	ServiceName   string
	Amount        int64
	PaymentMethod string
}

type Service struct {
	repo    *Repository
	slots   *availability.Repository
	workers availability.WorkerLookup
	notifs  *notification.Service
	logger  *zap.Logger

	loc        *time.Location
	windowDays int
	now        func() time.Time
}

func NewService(
	repo *Repository,
	slots *availability.Repository,
	workers availability.WorkerLookup,
	notifs *notification.Service,
	logger *zap.Logger,
	opts availability.Options,
) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       repo,
		slots:      slots,
		workers:    workers,
		notifs:     notifs,
		logger:     logger,
		loc:        opts.Location,
		windowDays: opts.WindowDays,
		now:        opts.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

// Reserve takes the slot and creates a pending booking in one transaction.
// Either both happen or neither does.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*Booking, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "booking.Reserve")
	defer span.End()
	span.SetAttributes(attribute.Int64("worker_id", in.WorkerID), attribute.String("date", in.Date))

	date, err := s.validateReserve(in)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)

	b := &Booking{
		WorkerID:      in.WorkerID,
		UserID:        in.UserID,
		Date:          availability.FormatDate(date),
		ServiceName:   strings.TrimSpace(in.ServiceName),
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Status:        StatusPending,
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.workers.Exists(ctx, tx, in.WorkerID)
		if err != nil {
			return err
		}
		if !ok {
			return worker.ErrWorkerNotFound
		}

		blocked, err := s.slots.IsDateBlocked(ctx, tx, in.WorkerID, b.Date)
		if err != nil {
			return err
		}
		if blocked {
			return ErrSlotUnavailable
		}

		// A date slot with the same range replaces the template entry on that date.
		if fixed, isFixed := in.Slot.(availability.FixedRef); isFixed {
			shadowed, err := s.slots.HasDateSlot(ctx, tx, in.WorkerID, b.Date, fixed.TimeRange.String())
			if err != nil {
				return err
			}
			if shadowed {
				return ErrSlotUnavailable
			}
		}

		ref, ok, err := s.slots.Reserve(ctx, tx, in.WorkerID, in.Slot)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSlotUnavailable
		}
		if !ref.Range().StartAt(date).After(now) {
			return ErrSlotUnavailable
		}

		setSlot(b, ref)
		return s.repo.Create(ctx, tx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot reserved",
		zap.Int64("booking_id", b.ID),
		zap.Int64("worker_id", b.WorkerID),
		zap.Int64("user_id", b.UserID),
		zap.String("slot_kind", b.SlotKind),
		zap.String("date", b.Date),
		zap.String("time_range", b.TimeRange),
	)
	s.notifs.NotifyBookingReserved(ctx, event(b))

	return b, nil
}

func (s *Service) validateReserve(in ReserveInput) (time.Time, error) {
	if in.WorkerID <= 0 || in.UserID <= 0 {
		return time.Time{}, fmt.Errorf("%w: worker and user are required", ErrValidation)
	}
	if in.Amount <= 0 {
		return time.Time{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if in.PaymentMethod != PaymentMethodOnline && in.PaymentMethod != PaymentMethodCOD {
		return time.Time{}, fmt.Errorf("%w: payment method must be online or cod", ErrValidation)
	}
	if strings.TrimSpace(in.ServiceName) == "" {
		return time.Time{}, fmt.Errorf("%w: service name is required", ErrValidation)
	}
	if in.Slot == nil {
		return time.Time{}, fmt.Errorf("%w: slot is required", ErrValidation)
	}

	date, err := availability.ParseDate(in.Date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !availability.InWindow(date, s.now(), s.windowDays) {
		return time.Time{}, fmt.Errorf("%w: date is outside the booking window", ErrValidation)
	}

	switch ref := in.Slot.(type) {
	case availability.FixedRef:
		if ref.Day != date.Weekday() {
			return time.Time{}, fmt.Errorf("%w: slot weekday does not match date", ErrValidation)
		}
	case availability.DateRef:
		if ref.Date != availability.FormatDate(date) {
			return time.Time{}, fmt.Errorf("%w: slot date does not match date", ErrValidation)
		}
	}

	return date, nil
}

// Accept moves a pending booking to accepted. Only the booking's worker may
// accept it.
func (s *Service) Accept(ctx context.Context, bookingID, workerID int64) (*Booking, error) {
	var b *Booking
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.transition(ctx, bookingID, workerID, ActorWorker, []Status{StatusPending}, StatusAccepted, "", false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifs.NotifyBookingAccepted(ctx, event(b))
	return b, nil
}

// Reject moves a pending booking to rejected and gives the slot back.
func (s *Service) Reject(ctx context.Context, bookingID, workerID int64) (*Booking, error) {
	b, err := s.transition(ctx, bookingID, workerID, ActorWorker, []Status{StatusPending}, StatusRejected, "", true)
	if err != nil {
		return nil, err
	}

	s.notifs.NotifyBookingRejected(ctx, event(b))
	return b, nil
}

// Cancel lets either participant cancel a pending or accepted booking. The
// reason is validated before anything changes.
func (s *Service) Cancel(ctx context.Context, bookingID, actorID int64, reason string) (*Booking, error) {
	reason = strings.TrimSpace(reason)
	if n := len([]rune(reason)); n < 10 || n > 100 {
		return nil, ErrInvalidCancellationReason
	}

	b, err := s.transition(ctx, bookingID, actorID, ActorParticipant, []Status{StatusPending, StatusAccepted}, StatusCancelled, reason, true)
	if err != nil {
		return nil, err
	}

	e := event(b)
	e.Reason = reason
	s.notifs.NotifyBookingCancelled(ctx, e)
	return b, nil
}

// Complete marks an accepted booking as done. The slot stays consumed.
func (s *Service) Complete(ctx context.Context, bookingID, workerID int64) (*Booking, error) {
	var b *Booking
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.transition(ctx, bookingID, workerID, ActorWorker, []Status{StatusAccepted}, StatusCompleted, "", false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifs.NotifyBookingCompleted(ctx, event(b))
	return b, nil
}

func (s *Service) transition(
	ctx context.Context,
	bookingID, actorID int64,
	actor Actor,
	from []Status,
	to Status,
	reason string,
	release bool,
) (*Booking, error) {
	var b *Booking

	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.Transition(ctx, tx, bookingID, actorID, actor, from, to, reason)
		if err != nil {
			return err
		}
		if n == 0 {
			return s.explainRefusal(ctx, tx, bookingID, actorID, actor)
		}

		b, err = s.repo.GetByID(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if release {
			released, err := s.slots.Release(ctx, tx, b.WorkerID, b.Slot())
			if err != nil {
				return err
			}
			if !released {
				s.logger.Warn("Slot was already available on release",
					zap.Int64("booking_id", b.ID),
					zap.String("slot_kind", b.SlotKind),
					zap.String("time_range", b.TimeRange),
				)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking status changed",
		zap.Int64("booking_id", b.ID),
		zap.Int64("actor_id", actorID),
		zap.String("status", string(b.Status)),
	)
	return b, nil
}

// explainRefusal turns a zero-row conditional update into the precise error.
func (s *Service) explainRefusal(ctx context.Context, tx *gorm.DB, bookingID, actorID int64, actor Actor) error {
	b, err := s.repo.GetByID(ctx, tx, bookingID)
	if err != nil {
		return err
	}

	switch actor {
	case ActorWorker:
		if b.WorkerID != actorID {
			return ErrForbidden
		}
	case ActorParticipant:
		if !b.IsParticipant(actorID) {
			return ErrForbidden
		}
	}
	return ErrInvalidStatusTransition
}

func (s *Service) Get(ctx context.Context, bookingID int64) (*Booking, error) {
	var b *Booking
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetByID(ctx, s.repo.DB(), bookingID)
		return err
	})
	return b, err
}

func (s *Service) ListByWorker(ctx context.Context, workerID int64, f ListFilter) ([]Booking, int64, error) {
	var (
		bookings []Booking
		total    int64
	)
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		bookings, total, err = s.repo.ListByWorker(ctx, workerID, f)
		return err
	})
	return bookings, total, err
}

func (s *Service) ListByUser(ctx context.Context, userID int64, f ListFilter) ([]Booking, int64, error) {
	var (
		bookings []Booking
		total    int64
	)
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		bookings, total, err = s.repo.ListByUser(ctx, userID, f)
		return err
	})
	return bookings, total, err
}

func event(b *Booking) notification.BookingEvent {
	return notification.BookingEvent{
		BookingID:   b.ID,
		WorkerID:    b.WorkerID,
		UserID:      b.UserID,
		Date:        b.Date,
		TimeRange:   b.TimeRange,
		ServiceName: b.ServiceName,
	}
}
