package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"servicehub/internal/config"
	"servicehub/internal/database"
	"servicehub/internal/domain/booking"
	"servicehub/internal/domain/ledger"
	"servicehub/internal/domain/worker"
	"servicehub/internal/logger"
)

// ledger_audit rebuilds every wallet from the payment ledger and exits with
// status 1 if any stored balance has drifted.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg := logger.New(cfg.AppEnv)
	defer func() { _ = logg.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Fatal("db connect failed", zap.Error(err))
	}

	svc := ledger.NewService(
		ledger.NewRepository(db),
		booking.NewRepository(db),
		worker.NewRepository(db),
		nil,
		logg,
		ledger.Options{CommissionBPS: cfg.CommissionRateBPS},
	)

	reports, err := svc.AuditAll(context.Background())
	if err != nil {
		logg.Fatal("audit failed", zap.Error(err))
	}

	drifted := 0
	for _, r := range reports {
		if r.Balanced() {
			continue
		}
		drifted++
		logg.Error("wallet drift",
			zap.Int64("worker_id", r.WorkerID),
			zap.Int64("stored_balance", r.Stored.BalanceAmount),
			zap.Int64("expected_balance", r.Expected.BalanceAmount),
			zap.Int64("stored_earnings", r.Stored.TotalEarnings),
			zap.Int64("expected_earnings", r.Expected.TotalEarnings),
			zap.Int64("stored_withdrawn", r.Stored.TotalWithdraw),
			zap.Int64("expected_withdrawn", r.Expected.TotalWithdraw),
		)
	}

	logg.Info("ledger audit completed", zap.Int("wallets", len(reports)), zap.Int("drifted", drifted))
	if drifted > 0 {
		_ = logg.Sync()
		os.Exit(1)
	}
}
