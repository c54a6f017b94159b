package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. Postgres runs the embedded goose
// migrations; sqlite is migrated from the gorm models passed in.
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger, models ...any) error {
	switch Dialect(db) {
	case DialectPostgres:
		if err := migratePostgres(ctx, db); err != nil {
			return err
		}
	default:
		if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
	}

	if err := EnsurePlatformWallet(ctx, db); err != nil {
		return err
	}

	log.Info("Migrations applied", zap.String("dialect", Dialect(db)))
	return nil
}

func migratePostgres(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// EnsurePlatformWallet creates the singleton commission wallet row.
func EnsurePlatformWallet(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).Exec(
		"INSERT INTO platform_wallets (id, balance_amount, total_earnings, total_withdraw, updated_at) " +
			"VALUES (1, 0, 0, 0, CURRENT_TIMESTAMP) ON CONFLICT (id) DO NOTHING",
	).Error
	if err != nil {
		return fmt.Errorf("ensure platform wallet: %w", err)
	}
	return nil
}
