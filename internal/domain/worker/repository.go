package worker

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *Repository) GetByID(ctx context.Context, id int64) (*Worker, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx reads a worker through tx so callers inside a transaction see
// their own writes.
func (r *Repository) GetByIDTx(ctx context.Context, tx *gorm.DB, id int64) (*Worker, error) {
	var w Worker
	if err := tx.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *Repository) Exists(ctx context.Context, tx *gorm.DB, id int64) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&Worker{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateIfAbsent inserts w unless a worker with the same id exists.
// It reports whether a row was inserted.
func (r *Repository) CreateIfAbsent(ctx context.Context, w *Worker) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(w)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) List(ctx context.Context) ([]Worker, error) {
	var workers []Worker
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&workers).Error; err != nil {
		return nil, err
	}
	return workers, nil
}
