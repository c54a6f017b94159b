package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"servicehub/internal/domain/worker"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) CreatePayment(ctx context.Context, tx *gorm.DB, p *Payment) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *Repository) GetPayment(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*Payment, error) {
	var p Payment
	if err := tx.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByExternalRef returns nil, nil when no payment carries ref.
func (r *Repository) FindByExternalRef(ctx context.Context, tx *gorm.DB, ref string) (*Payment, error) {
	var p Payment
	err := tx.WithContext(ctx).Where("external_ref = ?", ref).Limit(1).Find(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

// SettleCash moves a pending cash row to status. It returns the number of
// rows changed.
func (r *Repository) SettleCash(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) (int64, error) {
	res := tx.WithContext(ctx).Model(&Payment{}).
		Where("id = ? AND payment_status = ? AND payment_method = ?", id, StatusPending, MethodCOD).
		Update("payment_status", status)
	return res.RowsAffected, res.Error
}

func (r *Repository) CreditWorker(ctx context.Context, tx *gorm.DB, workerID, amount int64) error {
	res := tx.WithContext(ctx).Model(&worker.Worker{}).
		Where("id = ?", workerID).
		Updates(map[string]any{
			"balance_amount": gorm.Expr("balance_amount + ?", amount),
			"total_earnings": gorm.Expr("total_earnings + ?", amount),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return worker.ErrWorkerNotFound
	}
	return nil
}

// DebitWorker takes amount from the worker's balance only if the balance
// covers it. It returns the number of rows changed.
func (r *Repository) DebitWorker(ctx context.Context, tx *gorm.DB, workerID, amount int64) (int64, error) {
	res := tx.WithContext(ctx).Model(&worker.Worker{}).
		Where("id = ? AND balance_amount >= ?", workerID, amount).
		Updates(map[string]any{
			"balance_amount": gorm.Expr("balance_amount - ?", amount),
			"total_withdraw": gorm.Expr("total_withdraw + ?", amount),
			"updated_at":     time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *Repository) CreditPlatform(ctx context.Context, tx *gorm.DB, amount int64) error {
	res := tx.WithContext(ctx).Model(&PlatformWallet{}).
		Where("id = ?", PlatformWalletID).
		Updates(map[string]any{
			"balance_amount": gorm.Expr("balance_amount + ?", amount),
			"total_earnings": gorm.Expr("total_earnings + ?", amount),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("platform wallet missing")
	}
	return nil
}

func (r *Repository) GetPlatformWallet(ctx context.Context, tx *gorm.DB) (*PlatformWallet, error) {
	var w PlatformWallet
	if err := tx.WithContext(ctx).First(&w, "id = ?", PlatformWalletID).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) ListByWorker(ctx context.Context, workerID int64, limit, offset int) ([]Payment, int64, error) {
	scoped := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&Payment{}).Where("worker_id = ?", workerID)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []Payment
	if err := scoped().Order("payment_date DESC").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// WorkerTotals rebuilds a worker's wallet from its successful ledger rows.
func (r *Repository) WorkerTotals(ctx context.Context, tx *gorm.DB, workerID int64) (worker.Wallet, error) {
	var w worker.Wallet

	err := tx.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(amount - admin_commission), 0)").
		Where("worker_id = ? AND payment_status = ? AND transaction_type = ?", workerID, StatusSuccess, TypeService).
		Scan(&w.TotalEarnings).Error
	if err != nil {
		return w, err
	}

	err = tx.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("worker_id = ? AND payment_status = ? AND transaction_type = ?", workerID, StatusSuccess, TypeWithdrawal).
		Scan(&w.TotalWithdraw).Error
	if err != nil {
		return w, err
	}

	w.BalanceAmount = w.TotalEarnings - w.TotalWithdraw
	return w, nil
}

// PlatformTotals rebuilds the platform wallet from collected commissions.
func (r *Repository) PlatformTotals(ctx context.Context, tx *gorm.DB) (worker.Wallet, error) {
	var w worker.Wallet

	err := tx.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(admin_commission), 0)").
		Where("payment_status = ? AND transaction_type = ?", StatusSuccess, TypeService).
		Scan(&w.TotalEarnings).Error
	if err != nil {
		return w, err
	}

	w.BalanceAmount = w.TotalEarnings
	return w, nil
}
