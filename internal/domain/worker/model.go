package worker

import "time"

// Wallet is the balance triple carried by every worker and by the platform.
type Wallet struct {
	BalanceAmount int64 `json:"balance_amount" gorm:"not null;default:0"`
	TotalEarnings int64 `json:"total_earnings" gorm:"not null;default:0"`
	TotalWithdraw int64 `json:"total_withdraw" gorm:"not null;default:0"`
}

// Worker is a service provider. Its ID is the identity-layer user id.
type Worker struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	ServiceName string    `json:"service_name" gorm:"type:varchar(255);not null"`
	Wallet      Wallet    `json:"wallet" gorm:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Worker) TableName() string { return "workers" }
