package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"servicehub/internal/database"
	"servicehub/internal/domain/booking"
	"servicehub/internal/domain/notification"
	"servicehub/internal/domain/worker"
	"servicehub/internal/telemetry"
)

const defaultCommissionBPS = 1000

type Options struct {
	// CommissionBPS is the platform commission in basis points. Zero means
	// no commission.
	CommissionBPS int64
	Now           func() time.Time
}

type ConfirmInput struct {
	BookingID   int64
	Amount      int64
	ExternalRef string
}

type Service struct {
	repo     *Repository
	bookings *booking.Repository
	workers  *worker.Repository
	notifs   *notification.Service
	logger   *zap.Logger

	commissionBPS int64
	now           func() time.Time
}

func NewService(
	repo *Repository,
	bookings *booking.Repository,
	workers *worker.Repository,
	notifs *notification.Service,
	logger *zap.Logger,
	opts Options,
) *Service {
	if opts.CommissionBPS < 0 || opts.CommissionBPS > 10000 {
		opts.CommissionBPS = defaultCommissionBPS
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:          repo,
		bookings:      bookings,
		workers:       workers,
		notifs:        notifs,
		logger:        logger,
		commissionBPS: opts.CommissionBPS,
		now:           opts.Now,
	}
}

func (s *Service) CommissionBPS() int64 { return s.commissionBPS }

// ConfirmPayment records a successful online payment for a booking, links it
// to the booking and credits the worker share and the commission. A repeated
// call with the same external reference returns the recorded payment.
func (s *Service) ConfirmPayment(ctx context.Context, in ConfirmInput) (*Payment, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ledger.ConfirmPayment")
	defer span.End()
	span.SetAttributes(attribute.Int64("booking_id", in.BookingID))

	in.ExternalRef = strings.TrimSpace(in.ExternalRef)
	if in.BookingID <= 0 || in.ExternalRef == "" {
		return nil, fmt.Errorf("%w: booking id and external reference are required", ErrValidation)
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if p, err := s.replay(ctx, in); p != nil || err != nil {
		return p, err
	}

	var (
		p *Payment
		b *booking.Booking
	)
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		b, err = s.payableBooking(ctx, tx, in.BookingID, booking.PaymentMethodOnline)
		if err != nil {
			return err
		}
		if in.Amount != b.Amount {
			return ErrAmountMismatch
		}

		commission, _ := Split(in.Amount, s.commissionBPS)
		ref := in.ExternalRef
		p = &Payment{
			BookingID:       &b.ID,
			WorkerID:        b.WorkerID,
			Amount:          in.Amount,
			PaymentStatus:   StatusSuccess,
			PaymentMethod:   MethodOnline,
			TransactionType: TypeService,
			AdminCommission: commission,
			ExternalRef:     &ref,
			PaymentDate:     s.now(),
		}
		if err := s.repo.CreatePayment(ctx, tx, p); err != nil {
			return err
		}

		n, err := s.bookings.AttachPayment(ctx, tx, b.ID, p.ID, booking.PaymentMethodOnline)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyPaid
		}

		return s.credit(ctx, tx, p)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			if p, rerr := s.replay(ctx, in); p != nil || rerr != nil {
				return p, rerr
			}
		}
		if isPrecondition(err) {
			return nil, err
		}
		s.logger.Error("Payment confirmation failed", zap.Int64("booking_id", in.BookingID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentConfirmationFailed, err)
	}

	s.logger.Info("Payment confirmed",
		zap.String("payment_id", p.ID.String()),
		zap.Int64("booking_id", b.ID),
		zap.Int64("worker_id", p.WorkerID),
		zap.Int64("amount", p.Amount),
		zap.Int64("commission", p.AdminCommission),
	)
	s.notifs.NotifyPaymentConfirmed(ctx, b.ID, b.WorkerID, b.UserID, p.Amount, p.WorkerShare())

	return p, nil
}

// replay returns the payment already recorded under the external reference,
// if any. A reference used for a different booking is refused.
func (s *Service) replay(ctx context.Context, in ConfirmInput) (*Payment, error) {
	var p *Payment
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.repo.FindByExternalRef(ctx, s.repo.DB(), in.ExternalRef)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentConfirmationFailed, err)
	}
	if p == nil {
		return nil, nil
	}
	if p.BookingID == nil || *p.BookingID != in.BookingID {
		return nil, ErrAlreadyPaid
	}
	return p, nil
}

// RecordCashPayment opens a pending cash payment for a cod booking. Nothing
// is credited until the payment is reconciled.
func (s *Service) RecordCashPayment(ctx context.Context, bookingID int64) (*Payment, error) {
	var p *Payment
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.payableBooking(ctx, tx, bookingID, booking.PaymentMethodCOD)
		if err != nil {
			return err
		}

		commission, _ := Split(b.Amount, s.commissionBPS)
		p = &Payment{
			BookingID:       &b.ID,
			WorkerID:        b.WorkerID,
			Amount:          b.Amount,
			PaymentStatus:   StatusPending,
			PaymentMethod:   MethodCOD,
			TransactionType: TypeService,
			AdminCommission: commission,
			PaymentDate:     s.now(),
		}
		if err := s.repo.CreatePayment(ctx, tx, p); err != nil {
			return err
		}

		n, err := s.bookings.AttachPayment(ctx, tx, b.ID, p.ID, booking.PaymentMethodCOD)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyPaid
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cash payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.Int64("booking_id", bookingID),
		zap.Int64("amount", p.Amount),
	)
	return p, nil
}

// ReconcileCashPayment settles a pending cash payment exactly once. On
// success both wallets are credited in the same transaction, unless the
// booking was rejected or cancelled meanwhile. An uncollected payment is
// detached from its booking so a new one can be recorded.
func (s *Service) ReconcileCashPayment(ctx context.Context, paymentID uuid.UUID, collected bool) (*Payment, error) {
	status := StatusFailed
	if collected {
		status = StatusSuccess
	}

	var p *Payment
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.SettleCash(ctx, tx, paymentID, status)
		if err != nil {
			return err
		}

		p, err = s.repo.GetPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrPaymentNotPending
		}

		if !collected {
			if p.BookingID == nil {
				return nil
			}
			_, err := s.bookings.DetachPayment(ctx, tx, *p.BookingID, p.ID)
			return err
		}

		if p.BookingID != nil {
			b, err := s.bookings.GetByID(ctx, tx, *p.BookingID)
			if err != nil {
				return err
			}
			if b.Status == booking.StatusRejected || b.Status == booking.StatusCancelled {
				return ErrBookingNotPayable
			}
		}
		return s.credit(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cash payment reconciled",
		zap.String("payment_id", p.ID.String()),
		zap.String("status", p.PaymentStatus),
	)
	if collected && p.BookingID != nil {
		var userID int64
		if b, err := s.bookings.GetByID(ctx, s.bookings.DB(), *p.BookingID); err == nil {
			userID = b.UserID
		}
		s.notifs.NotifyPaymentConfirmed(ctx, *p.BookingID, p.WorkerID, userID, p.Amount, p.WorkerShare())
	}
	return p, nil
}

// Withdraw pays amount out of the worker's balance. The balance never goes
// below zero.
func (s *Service) Withdraw(ctx context.Context, workerID, amount int64) (*Payment, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ledger.Withdraw")
	defer span.End()
	span.SetAttributes(attribute.Int64("worker_id", workerID), attribute.Int64("amount", amount))

	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		p       *Payment
		balance int64
	)
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.DebitWorker(ctx, tx, workerID, amount)
		if err != nil {
			return err
		}
		if n == 0 {
			ok, err := s.workers.Exists(ctx, tx, workerID)
			if err != nil {
				return err
			}
			if !ok {
				return worker.ErrWorkerNotFound
			}
			return ErrInsufficientBalance
		}

		p = &Payment{
			WorkerID:        workerID,
			Amount:          amount,
			PaymentStatus:   StatusSuccess,
			PaymentMethod:   MethodWithdrawal,
			TransactionType: TypeWithdrawal,
			PaymentDate:     s.now(),
		}
		if err := s.repo.CreatePayment(ctx, tx, p); err != nil {
			return err
		}

		w, err := s.workers.GetByIDTx(ctx, tx, workerID)
		if err != nil {
			return err
		}
		balance = w.Wallet.BalanceAmount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Withdrawal processed",
		zap.Int64("worker_id", workerID),
		zap.Int64("amount", amount),
		zap.Int64("balance", balance),
	)
	s.notifs.NotifyWithdrawal(ctx, workerID, amount, balance)

	return p, nil
}

func (s *Service) GetWallet(ctx context.Context, workerID int64) (*worker.Wallet, error) {
	var w *worker.Worker
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		w, err = s.workers.GetByID(ctx, workerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &w.Wallet, nil
}

func (s *Service) GetPlatformWallet(ctx context.Context) (*PlatformWallet, error) {
	var w *PlatformWallet
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		w, err = s.repo.GetPlatformWallet(ctx, s.repo.DB())
		return err
	})
	return w, err
}

func (s *Service) ListPayments(ctx context.Context, workerID int64, limit, offset int) ([]Payment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var (
		payments []Payment
		total    int64
	)
	err := database.RetryOnce(ctx, func(ctx context.Context) error {
		var err error
		payments, total, err = s.repo.ListByWorker(ctx, workerID, limit, offset)
		return err
	})
	return payments, total, err
}

// Audit rebuilds the worker's wallet from the ledger and compares it with the
// stored one. Both reads share a transaction so they see the same snapshot.
func (s *Service) Audit(ctx context.Context, workerID int64) (*AuditReport, error) {
	report := &AuditReport{WorkerID: workerID}
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.workers.GetByIDTx(ctx, tx, workerID)
		if err != nil {
			return err
		}
		report.Stored = w.Wallet

		report.Expected, err = s.repo.WorkerTotals(ctx, tx, workerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) AuditPlatform(ctx context.Context) (*AuditReport, error) {
	report := &AuditReport{}
	err := s.repo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.repo.GetPlatformWallet(ctx, tx)
		if err != nil {
			return err
		}
		report.Stored = w.Wallet

		report.Expected, err = s.repo.PlatformTotals(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// AuditAll audits every worker followed by the platform wallet.
func (s *Service) AuditAll(ctx context.Context) ([]AuditReport, error) {
	workers, err := s.workers.List(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]AuditReport, 0, len(workers)+1)
	for _, w := range workers {
		r, err := s.Audit(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("audit worker %d: %w", w.ID, err)
		}
		reports = append(reports, *r)
	}

	platform, err := s.AuditPlatform(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit platform: %w", err)
	}
	return append(reports, *platform), nil
}

func (s *Service) payableBooking(ctx context.Context, tx *gorm.DB, bookingID int64, method string) (*booking.Booking, error) {
	b, err := s.bookings.GetByID(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentID != nil {
		return nil, ErrAlreadyPaid
	}
	if b.PaymentMethod != method || !b.Status.IsActive() {
		return nil, ErrBookingNotPayable
	}
	return b, nil
}

func (s *Service) credit(ctx context.Context, tx *gorm.DB, p *Payment) error {
	if err := s.repo.CreditWorker(ctx, tx, p.WorkerID, p.WorkerShare()); err != nil {
		return err
	}
	return s.repo.CreditPlatform(ctx, tx, p.AdminCommission)
}

func isPrecondition(err error) bool {
	for _, target := range []error{
		ErrValidation,
		ErrInvalidAmount,
		ErrBookingNotFound,
		ErrAlreadyPaid,
		ErrAmountMismatch,
		ErrBookingNotPayable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
