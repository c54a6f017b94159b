package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"servicehub/internal/database"
	"servicehub/internal/domain/availability"
	"servicehub/internal/domain/booking"
	"servicehub/internal/domain/notification"
	"servicehub/internal/domain/worker"
)

const (
	testWorkerID   = int64(1)
	testCustomerID = int64(100)
)

var testNow = time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	svc      *Service
	recorder *notification.Recorder
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.OpenSQLite(fmt.Sprintf("file:ledger_test_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}

	models := []any{&worker.Worker{}, &booking.Booking{}}
	models = append(models, availability.Models()...)
	models = append(models, Models()...)
	if err := database.Migrate(context.Background(), db, zap.NewNop(), models...); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	require.NoError(t, db.Create(&worker.Worker{ID: testWorkerID, Name: "Aida", ServiceName: "Plumbing"}).Error)

	recorder := &notification.Recorder{}
	svc := NewService(
		NewRepository(db),
		booking.NewRepository(db),
		worker.NewRepository(db),
		notification.NewService(recorder, zap.NewNop()),
		zap.NewNop(),
		Options{CommissionBPS: 1000, Now: func() time.Time { return testNow }},
	)
	return &testEnv{db: db, svc: svc, recorder: recorder}
}

func (e *testEnv) createBooking(t *testing.T, amount int64, method string, status booking.Status) *booking.Booking {
	t.Helper()
	slotID := int64(1)
	b := &booking.Booking{
		WorkerID:      testWorkerID,
		UserID:        testCustomerID,
		SlotKind:      availability.SlotKindDate,
		DateSlotID:    &slotID,
		TimeRange:     "09:00-10:00",
		Date:          "2026-10-20",
		ServiceName:   "Pipe repair",
		Amount:        amount,
		PaymentMethod: method,
		Status:        status,
	}
	require.NoError(t, e.db.Create(b).Error)
	return b
}

func (e *testEnv) wallet(t *testing.T) worker.Wallet {
	t.Helper()
	w, err := e.svc.GetWallet(context.Background(), testWorkerID)
	require.NoError(t, err)
	return *w
}

func (e *testEnv) platform(t *testing.T) worker.Wallet {
	t.Helper()
	w, err := e.svc.GetPlatformWallet(context.Background())
	require.NoError(t, err)
	return w.Wallet
}

func (e *testEnv) countPayments(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&Payment{}).Count(&n).Error)
	return n
}

func TestSplit(t *testing.T) {
	commission, share := Split(1000, 1000)
	assert.Equal(t, int64(100), commission)
	assert.Equal(t, int64(900), share)

	commission, share = Split(999, 1000)
	assert.Equal(t, int64(99), commission)
	assert.Equal(t, int64(900), share)
}

func TestSplit_ConservesEveryUnit(t *testing.T) {
	for _, bps := range []int64{1, 250, 1000, 1250, 3333, 9999, 10000} {
		for amount := int64(1); amount <= 5000; amount++ {
			commission, share := Split(amount, bps)
			if commission+share != amount || commission < 0 || share < 0 {
				t.Fatalf("Split(%d, %d) = %d, %d", amount, bps, commission, share)
			}
			// floor: commission*10000 <= amount*bps < (commission+1)*10000
			if commission*10000 > amount*bps || (commission+1)*10000 <= amount*bps {
				t.Fatalf("Split(%d, %d) commission %d is not the floor", amount, bps, commission)
			}
		}
	}
}

func TestSplit_LargeAmounts(t *testing.T) {
	commission, share := Split(math.MaxInt64, 1000)
	assert.Equal(t, int64(math.MaxInt64/10), commission)
	assert.Equal(t, int64(math.MaxInt64)-commission, share)

	commission, share = Split(math.MaxInt64, 10000)
	assert.Equal(t, int64(math.MaxInt64), commission)
	assert.Zero(t, share)

	commission, share = Split(1_000_000_000_000_000, 1250)
	assert.Equal(t, int64(125_000_000_000_000), commission)
	assert.Equal(t, int64(875_000_000_000_000), share)

	commission, share = Split(0, 1000)
	assert.Zero(t, commission)
	assert.Zero(t, share)
}

func TestConfirmPayment_CreditsWorkerAndPlatform(t *testing.T) {
	env := setupTestEnv(t)
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)

	p, err := env.svc.ConfirmPayment(context.Background(), ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_1"})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, p.PaymentStatus)
	assert.Equal(t, int64(100), p.AdminCommission)
	assert.Equal(t, worker.Wallet{BalanceAmount: 900, TotalEarnings: 900}, env.wallet(t))
	assert.Equal(t, worker.Wallet{BalanceAmount: 100, TotalEarnings: 100}, env.platform(t))

	var stored booking.Booking
	require.NoError(t, env.db.First(&stored, b.ID).Error)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, p.ID, *stored.PaymentID)
	assert.Equal(t, booking.StatusPending, stored.Status)

	assert.Equal(t, []notification.Type{notification.TypePaymentConfirmed}, env.recorder.Types())
}

func TestConfirmPayment_SameReferenceIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusAccepted)

	first, err := env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_1"})
	require.NoError(t, err)
	again, err := env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_1"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(1), env.countPayments(t))
	assert.Equal(t, int64(900), env.wallet(t).BalanceAmount)

	_, err = env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_2"})
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	other := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)
	_, err = env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: other.ID, Amount: 1000, ExternalRef: "pi_1"})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestConfirmPayment_Preconditions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	online := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)
	cod := env.createBooking(t, 1000, booking.PaymentMethodCOD, booking.StatusPending)
	cancelled := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusCancelled)

	cases := []struct {
		name string
		in   ConfirmInput
		want error
	}{
		{"unknown booking", ConfirmInput{BookingID: 999, Amount: 1000, ExternalRef: "a"}, ErrBookingNotFound},
		{"amount mismatch", ConfirmInput{BookingID: online.ID, Amount: 999, ExternalRef: "b"}, ErrAmountMismatch},
		{"cash booking", ConfirmInput{BookingID: cod.ID, Amount: 1000, ExternalRef: "c"}, ErrBookingNotPayable},
		{"cancelled booking", ConfirmInput{BookingID: cancelled.ID, Amount: 1000, ExternalRef: "d"}, ErrBookingNotPayable},
		{"zero amount", ConfirmInput{BookingID: online.ID, Amount: 0, ExternalRef: "e"}, ErrInvalidAmount},
		{"missing reference", ConfirmInput{BookingID: online.ID, Amount: 1000, ExternalRef: " "}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.ConfirmPayment(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.Equal(t, int64(0), env.countPayments(t))
	assert.Equal(t, worker.Wallet{}, env.wallet(t))
	assert.Equal(t, worker.Wallet{}, env.platform(t))
}

func TestConfirmPayment_MissingWorkerRollsBack(t *testing.T) {
	env := setupTestEnv(t)
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)
	require.NoError(t, env.db.Exec("DELETE FROM workers WHERE id = ?", testWorkerID).Error)

	_, err := env.svc.ConfirmPayment(context.Background(), ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_1"})
	assert.ErrorIs(t, err, ErrPaymentConfirmationFailed)

	assert.Equal(t, int64(0), env.countPayments(t))
	var stored booking.Booking
	require.NoError(t, env.db.First(&stored, b.ID).Error)
	assert.Nil(t, stored.PaymentID)
	assert.Equal(t, worker.Wallet{}, env.platform(t))
}

func TestCashPayment_CreditsOnlyWhenCollected(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	b := env.createBooking(t, 2000, booking.PaymentMethodCOD, booking.StatusAccepted)

	p, err := env.svc.RecordCashPayment(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.PaymentStatus)
	assert.Equal(t, worker.Wallet{}, env.wallet(t))

	_, err = env.svc.RecordCashPayment(ctx, b.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	settled, err := env.svc.ReconcileCashPayment(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, settled.PaymentStatus)
	assert.Equal(t, worker.Wallet{BalanceAmount: 1800, TotalEarnings: 1800}, env.wallet(t))
	assert.Equal(t, worker.Wallet{BalanceAmount: 200, TotalEarnings: 200}, env.platform(t))

	_, err = env.svc.ReconcileCashPayment(ctx, p.ID, true)
	assert.ErrorIs(t, err, ErrPaymentNotPending)
	assert.Equal(t, int64(1800), env.wallet(t).BalanceAmount)
}

func TestCashPayment_NotCollected(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	b := env.createBooking(t, 2000, booking.PaymentMethodCOD, booking.StatusPending)

	p, err := env.svc.RecordCashPayment(ctx, b.ID)
	require.NoError(t, err)

	failed, err := env.svc.ReconcileCashPayment(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.PaymentStatus)
	assert.Equal(t, worker.Wallet{}, env.wallet(t))

	_, err = env.svc.ReconcileCashPayment(ctx, p.ID, true)
	assert.ErrorIs(t, err, ErrPaymentNotPending)

	var stored booking.Booking
	require.NoError(t, env.db.First(&stored, b.ID).Error)
	assert.Nil(t, stored.PaymentID)

	retry, err := env.svc.RecordCashPayment(ctx, b.ID)
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, retry.ID)
	_, err = env.svc.ReconcileCashPayment(ctx, retry.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), env.wallet(t).BalanceAmount)

	online := env.createBooking(t, 2000, booking.PaymentMethodOnline, booking.StatusPending)
	_, err = env.svc.RecordCashPayment(ctx, online.ID)
	assert.ErrorIs(t, err, ErrBookingNotPayable)
}

func TestCashPayment_CancelledBookingIsNotCredited(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	b := env.createBooking(t, 2000, booking.PaymentMethodCOD, booking.StatusAccepted)

	p, err := env.svc.RecordCashPayment(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&booking.Booking{}).Where("id = ?", b.ID).
		Update("status", booking.StatusCancelled).Error)

	_, err = env.svc.ReconcileCashPayment(ctx, p.ID, true)
	assert.ErrorIs(t, err, ErrBookingNotPayable)
	assert.Equal(t, worker.Wallet{}, env.wallet(t))
	assert.Equal(t, worker.Wallet{}, env.platform(t))

	var stored Payment
	require.NoError(t, env.db.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, StatusPending, stored.PaymentStatus)

	failed, err := env.svc.ReconcileCashPayment(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.PaymentStatus)
}

func TestConfirmPayment_CancelledContextLeavesNoState(t *testing.T) {
	env := setupTestEnv(t)
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_cancelled"})
	require.Error(t, err)

	assert.Zero(t, env.countPayments(t))
	assert.Equal(t, worker.Wallet{}, env.wallet(t))
	assert.Equal(t, worker.Wallet{}, env.platform(t))

	var stored booking.Booking
	require.NoError(t, env.db.First(&stored, b.ID).Error)
	assert.Nil(t, stored.PaymentID)

	_, err = env.svc.ConfirmPayment(context.Background(), ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_cancelled"})
	assert.NoError(t, err)
}

func TestWithdraw_CancelledContextLeavesBalance(t *testing.T) {
	env := setupTestEnv(t)
	require.NoError(t, env.db.Model(&worker.Worker{}).Where("id = ?", testWorkerID).
		Updates(map[string]any{"balance_amount": 500, "total_earnings": 500}).Error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.Withdraw(ctx, testWorkerID, 200)
	require.Error(t, err)

	assert.Zero(t, env.countPayments(t))
	assert.Equal(t, worker.Wallet{BalanceAmount: 500, TotalEarnings: 500}, env.wallet(t))
}

func TestWithdraw_NeverOverdraws(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.db.Model(&worker.Worker{}).Where("id = ?", testWorkerID).
		Updates(map[string]any{"balance_amount": 500, "total_earnings": 500}).Error)

	_, err := env.svc.Withdraw(ctx, testWorkerID, 600)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(500), env.wallet(t).BalanceAmount)

	p, err := env.svc.Withdraw(ctx, testWorkerID, 500)
	require.NoError(t, err)
	assert.Equal(t, TypeWithdrawal, p.TransactionType)
	assert.Equal(t, MethodWithdrawal, p.PaymentMethod)
	assert.Equal(t, worker.Wallet{BalanceAmount: 0, TotalEarnings: 500, TotalWithdraw: 500}, env.wallet(t))

	_, err = env.svc.Withdraw(ctx, testWorkerID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.svc.Withdraw(ctx, 42, 10)
	assert.ErrorIs(t, err, worker.ErrWorkerNotFound)

	assert.Contains(t, env.recorder.Types(), notification.TypeWalletWithdrawn)
}

func TestWithdraw_ConcurrentRequests(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)
	_, err := env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_1"})
	require.NoError(t, err)

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Withdraw(context.Background(), testWorkerID, 100)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientBalance):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, succeeded)
	assert.Equal(t, 1, refused)
	assert.Equal(t, int64(0), env.wallet(t).BalanceAmount)

	report, err := env.svc.Audit(ctx, testWorkerID)
	require.NoError(t, err)
	assert.True(t, report.Balanced())
}

func TestAudit_ConservationAfterMixedOperations(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for i, amount := range []int64{1000, 2550, 333} {
		b := env.createBooking(t, amount, booking.PaymentMethodOnline, booking.StatusPending)
		_, err := env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: amount, ExternalRef: fmt.Sprintf("pi_%d", i)})
		require.NoError(t, err)
	}

	cash := env.createBooking(t, 4000, booking.PaymentMethodCOD, booking.StatusAccepted)
	p, err := env.svc.RecordCashPayment(ctx, cash.ID)
	require.NoError(t, err)
	_, err = env.svc.ReconcileCashPayment(ctx, p.ID, true)
	require.NoError(t, err)

	lost := env.createBooking(t, 700, booking.PaymentMethodCOD, booking.StatusAccepted)
	p, err = env.svc.RecordCashPayment(ctx, lost.ID)
	require.NoError(t, err)
	_, err = env.svc.ReconcileCashPayment(ctx, p.ID, false)
	require.NoError(t, err)

	_, err = env.svc.Withdraw(ctx, testWorkerID, 1234)
	require.NoError(t, err)
	_, err = env.svc.Withdraw(ctx, testWorkerID, 1_000_000)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	reports, err := env.svc.AuditAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.True(t, r.Balanced(), "wallet of worker %d drifted: %+v", r.WorkerID, r)
	}

	// 100 + 255 + 33 + 400 in commission.
	assert.Equal(t, int64(788), env.platform(t).BalanceAmount)
	assert.Equal(t, int64(1000+2550+333+4000-788-1234), env.wallet(t).BalanceAmount)

	require.NoError(t, env.db.Model(&worker.Worker{}).Where("id = ?", testWorkerID).
		Update("balance_amount", gorm.Expr("balance_amount + 1")).Error)
	report, err := env.svc.Audit(ctx, testWorkerID)
	require.NoError(t, err)
	assert.False(t, report.Balanced())
}

func TestListPayments(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	b := env.createBooking(t, 1000, booking.PaymentMethodOnline, booking.StatusPending)
	_, err := env.svc.ConfirmPayment(ctx, ConfirmInput{BookingID: b.ID, Amount: 1000, ExternalRef: "pi_1"})
	require.NoError(t, err)
	_, err = env.svc.Withdraw(ctx, testWorkerID, 400)
	require.NoError(t, err)

	payments, total, err := env.svc.ListPayments(ctx, testWorkerID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, payments, 2)

	payments, total, err = env.svc.ListPayments(ctx, testWorkerID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, payments, 1)
}
