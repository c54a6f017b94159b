package availability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"servicehub/internal/database"
	"servicehub/internal/domain/worker"
	"servicehub/internal/telemetry"
)

// WorkerLookup checks that a worker exists, reading through tx.
type WorkerLookup interface {
	Exists(ctx context.Context, tx *gorm.DB, id int64) (bool, error)
}

// ActiveBookingChecker reports pending or accepted bookings that hold a
// worker's time.
type ActiveBookingChecker interface {
	HasActiveFixedBooking(ctx context.Context, tx *gorm.DB, workerID int64) (bool, error)
	HasActiveBookingAt(ctx context.Context, tx *gorm.DB, workerID int64, date, timeRange string) (bool, error)
}

type Options struct {
	Location   *time.Location
	WindowDays int
	Now        func() time.Time
}

type Service struct {
	repo     *Repository
	workers  WorkerLookup
	bookings ActiveBookingChecker
	logger   *zap.Logger

	loc        *time.Location
	windowDays int
	now        func() time.Time
}

func NewService(repo *Repository, workers WorkerLookup, bookings ActiveBookingChecker, logger *zap.Logger, opts Options) *Service {
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
		workers:    workers,
		bookings:   bookings,
		logger:     logger,
		loc:        opts.Location,
		windowDays: opts.WindowDays,
		now:        opts.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) WindowDays() int { return s.windowDays }

func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// GetSlots resolves the slots of a worker for a "YYYY-MM-DD" date.
func (s *Service) GetSlots(ctx context.Context, workerID int64, dateStr string) ([]Slot, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "availability.GetSlots")
	defer span.End()
	span.SetAttributes(attribute.Int64("worker_id", workerID), attribute.String("date", dateStr))

	date, err := ParseDate(dateStr, s.loc)
	if err != nil {
		return nil, err
	}

	av, err := s.load(ctx, workerID)
	if err != nil {
		return nil, err
	}

	return ResolveSlots(av, date, s.Now(), s.windowDays), nil
}

func (s *Service) GetAvailability(ctx context.Context, workerID int64) (*Availability, error) {
	return s.load(ctx, workerID)
}

func (s *Service) load(ctx context.Context, workerID int64) (*Availability, error) {
	var av *Availability
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		ok, err := s.workers.Exists(ctx, s.repo.DB(), workerID)
		if err != nil {
			return err
		}
		if !ok {
			return worker.ErrWorkerNotFound
		}
		av, err = s.repo.Load(ctx, s.repo.DB(), workerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return av, nil
}

// ReplaceFixedSlots swaps the whole weekly template of a worker. It refuses
// while an active booking holds one of the template slots, since replacing
// the template would lose the reservation.
func (s *Service) ReplaceFixedSlots(ctx context.Context, workerID int64, inputs []FixedSlotInput) ([]FixedSlot, error) {
	slots, err := buildFixedSlots(workerID, inputs)
	if err != nil {
		return nil, err
	}

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureWorker(ctx, tx, workerID); err != nil {
			return err
		}

		inUse, err := s.bookings.HasActiveFixedBooking(ctx, tx, workerID)
		if err != nil {
			return err
		}
		if inUse {
			return ErrSlotInUse
		}

		return s.repo.ReplaceFixedSlots(ctx, tx, workerID, slots)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fixed slots replaced", zap.Int64("worker_id", workerID), zap.Int("count", len(slots)))
	return slots, nil
}

func buildFixedSlots(workerID int64, inputs []FixedSlotInput) ([]FixedSlot, error) {
	byDay := make(map[time.Weekday][]TimeRange)
	slots := make([]FixedSlot, 0, len(inputs))

	for _, in := range inputs {
		if in.Day < time.Sunday || in.Day > time.Saturday {
			return nil, fmt.Errorf("%w: day out of range", ErrValidation)
		}
		r, err := ParseTimeRange(in.TimeRange)
		if err != nil {
			return nil, err
		}
		byDay[in.Day] = append(byDay[in.Day], r)
		slots = append(slots, FixedSlot{
			WorkerID:    workerID,
			DayOfWeek:   int(in.Day),
			TimeRange:   r.String(),
			StartMinute: r.Start,
			EndMinute:   r.End,
			Enabled:     in.Enabled,
		})
	}

	for _, ranges := range byDay {
		if err := checkOverlaps(ranges); err != nil {
			return nil, err
		}
	}
	return slots, nil
}

// AddDateSlots adds one-off slots to a date. New ranges may not overlap each
// other or the slots already present on that date.
func (s *Service) AddDateSlots(ctx context.Context, workerID int64, dateStr string, ranges []string) ([]DateSlot, error) {
	date, err := ParseDate(dateStr, s.loc)
	if err != nil {
		return nil, err
	}
	if startOfDay(date).Before(startOfDay(s.Now())) {
		return nil, fmt.Errorf("%w: date is in the past", ErrInvalidDate)
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("%w: no time ranges", ErrValidation)
	}

	parsed := make([]TimeRange, 0, len(ranges))
	for _, raw := range ranges {
		r, err := ParseTimeRange(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, r)
	}

	day := FormatDate(date)
	slots := make([]DateSlot, 0, len(parsed))

	err = s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureWorker(ctx, tx, workerID); err != nil {
			return err
		}

		existing, err := s.repo.ListDateSlots(ctx, tx, workerID, day)
		if err != nil {
			return err
		}
		all := make([]TimeRange, 0, len(existing)+len(parsed))
		for _, e := range existing {
			all = append(all, e.Range())
		}
		all = append(all, parsed...)
		if err := checkOverlaps(all); err != nil {
			return err
		}

		for _, r := range parsed {
			held, err := s.bookings.HasActiveBookingAt(ctx, tx, workerID, day, r.String())
			if err != nil {
				return err
			}
			if held {
				return ErrSlotInUse
			}
		}

		for _, r := range parsed {
			slots = append(slots, DateSlot{
				WorkerID:    workerID,
				Date:        day,
				TimeRange:   r.String(),
				StartMinute: r.Start,
				EndMinute:   r.End,
			})
		}
		if err := s.repo.CreateDateSlots(ctx, tx, slots); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrOverlappingSlots
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Date slots added",
		zap.Int64("worker_id", workerID),
		zap.String("date", day),
		zap.Int("count", len(slots)),
	)
	return slots, nil
}

// RemoveDateSlot deletes a date slot that is not booked.
func (s *Service) RemoveDateSlot(ctx context.Context, workerID, slotID int64) error {
	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.DeleteFreeDateSlot(ctx, tx, workerID, slotID)
		if err != nil {
			return err
		}
		if affected == 1 {
			return nil
		}

		if _, err := s.repo.GetDateSlot(ctx, tx, workerID, slotID); err != nil {
			return err
		}
		return ErrSlotInUse
	})
}

func (s *Service) BlockDate(ctx context.Context, workerID int64, dateStr string) error {
	date, err := ParseDate(dateStr, s.loc)
	if err != nil {
		return err
	}

	return s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureWorker(ctx, tx, workerID); err != nil {
			return err
		}
		err := s.repo.BlockDate(ctx, tx, workerID, FormatDate(date))
		if database.IsUniqueViolation(err) {
			return nil
		}
		return err
	})
}

func (s *Service) UnblockDate(ctx context.Context, workerID int64, dateStr string) error {
	date, err := ParseDate(dateStr, s.loc)
	if err != nil {
		return err
	}

	_, err = s.repo.UnblockDate(ctx, s.repo.DB(), workerID, FormatDate(date))
	return err
}

func (s *Service) ensureWorker(ctx context.Context, tx *gorm.DB, workerID int64) error {
	ok, err := s.workers.Exists(ctx, tx, workerID)
	if err != nil {
		return err
	}
	if !ok {
		return worker.ErrWorkerNotFound
	}
	return nil
}
