package ledger

import (
	"math/bits"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"servicehub/internal/domain/worker"
)

const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusFailed  = "failed"

	MethodOnline     = "online"
	MethodCOD        = "cod"
	MethodWithdrawal = "withdrawal"

	TypeService    = "service"
	TypeWithdrawal = "withdrawal"
)

// PlatformWalletID is the id of the single platform wallet row.
const PlatformWalletID = 1

// Payment is one ledger entry. Rows are append-only; the only update ever
// made is settling a pending cash row.
type Payment struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID       *int64    `json:"booking_id,omitempty" gorm:"index"`
	WorkerID        int64     `json:"worker_id" gorm:"not null;index"`
	Amount          int64     `json:"amount" gorm:"not null"`
	PaymentStatus   string    `json:"payment_status" gorm:"type:varchar(16);not null"`
	PaymentMethod   string    `json:"payment_method" gorm:"type:varchar(16);not null"`
	TransactionType string    `json:"transaction_type" gorm:"type:varchar(16);not null"`
	AdminCommission int64     `json:"admin_commission" gorm:"not null"`
	ExternalRef     *string   `json:"external_ref,omitempty" gorm:"type:varchar(128);uniqueIndex"`
	PaymentDate     time.Time `json:"payment_date" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// WorkerShare is what the worker keeps from a service payment.
func (p *Payment) WorkerShare() int64 {
	return p.Amount - p.AdminCommission
}

type PlatformWallet struct {
	ID        int           `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Wallet    worker.Wallet `json:"wallet" gorm:"embedded"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (PlatformWallet) TableName() string { return "platform_wallets" }

// AuditReport compares a stored wallet with the wallet rebuilt from the
// ledger. WorkerID is zero for the platform wallet.
type AuditReport struct {
	WorkerID int64         `json:"worker_id"`
	Stored   worker.Wallet `json:"stored"`
	Expected worker.Wallet `json:"expected"`
}

func (r *AuditReport) Balanced() bool {
	return r.Stored == r.Expected
}

// Models lists the tables owned by this package, for AutoMigrate.
func Models() []any {
	return []any{&Payment{}, &PlatformWallet{}}
}

// Split divides amount into the platform commission and the worker share.
// The commission is floor(amount * bps / 10000), computed in 128 bits so any
// int64 amount is safe. Non-positive amounts carry no commission.
func Split(amount, bps int64) (commission, workerShare int64) {
	if amount <= 0 || bps <= 0 {
		return 0, amount
	}
	if bps > 10000 {
		bps = 10000
	}
	hi, lo := bits.Mul64(uint64(amount), uint64(bps))
	q, _ := bits.Div64(hi, lo, 10000)
	commission = int64(q)
	return commission, amount - commission
}
