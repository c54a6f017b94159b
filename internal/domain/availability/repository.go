package availability

import (
	"context"
	"errors"

	"gorm.io/gorm"
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

// Load reads the whole availability aggregate of a worker.
func (r *Repository) Load(ctx context.Context, tx *gorm.DB, workerID int64) (*Availability, error) {
	av := &Availability{WorkerID: workerID}
	db := tx.WithContext(ctx)

	if err := db.Where("worker_id = ?", workerID).
		Order("day_of_week ASC, start_minute ASC").
		Find(&av.FixedSlots).Error; err != nil {
		return nil, err
	}
	if err := db.Where("worker_id = ?", workerID).
		Order("date ASC, start_minute ASC").
		Find(&av.DateSlots).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&UnavailableDate{}).
		Where("worker_id = ?", workerID).
		Order("date ASC").
		Pluck("date", &av.UnavailableDates).Error; err != nil {
		return nil, err
	}

	return av, nil
}

func (r *Repository) ReplaceFixedSlots(ctx context.Context, tx *gorm.DB, workerID int64, slots []FixedSlot) error {
	db := tx.WithContext(ctx)
	if err := db.Where("worker_id = ?", workerID).Delete(&FixedSlot{}).Error; err != nil {
		return err
	}
	if len(slots) == 0 {
		return nil
	}
	return db.Create(&slots).Error
}

func (r *Repository) ListDateSlots(ctx context.Context, tx *gorm.DB, workerID int64, date string) ([]DateSlot, error) {
	var slots []DateSlot
	err := tx.WithContext(ctx).
		Where("worker_id = ? AND date = ?", workerID, date).
		Order("start_minute ASC").
		Find(&slots).Error
	return slots, err
}

func (r *Repository) CreateDateSlots(ctx context.Context, tx *gorm.DB, slots []DateSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&slots).Error
}

func (r *Repository) GetDateSlot(ctx context.Context, tx *gorm.DB, workerID, slotID int64) (*DateSlot, error) {
	var slot DateSlot
	err := tx.WithContext(ctx).Where("id = ? AND worker_id = ?", slotID, workerID).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &slot, nil
}

// DeleteFreeDateSlot removes a date slot only while it is not booked.
func (r *Repository) DeleteFreeDateSlot(ctx context.Context, tx *gorm.DB, workerID, slotID int64) (int64, error) {
	res := tx.WithContext(ctx).
		Where("id = ? AND worker_id = ? AND booked = ?", slotID, workerID, false).
		Delete(&DateSlot{})
	return res.RowsAffected, res.Error
}

func (r *Repository) BlockDate(ctx context.Context, tx *gorm.DB, workerID int64, date string) error {
	var existing int64
	db := tx.WithContext(ctx)
	if err := db.Model(&UnavailableDate{}).
		Where("worker_id = ? AND date = ?", workerID, date).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return db.Create(&UnavailableDate{WorkerID: workerID, Date: date}).Error
}

func (r *Repository) UnblockDate(ctx context.Context, tx *gorm.DB, workerID int64, date string) (int64, error) {
	res := tx.WithContext(ctx).
		Where("worker_id = ? AND date = ?", workerID, date).
		Delete(&UnavailableDate{})
	return res.RowsAffected, res.Error
}

func (r *Repository) IsDateBlocked(ctx context.Context, tx *gorm.DB, workerID int64, date string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&UnavailableDate{}).
		Where("worker_id = ? AND date = ?", workerID, date).
		Count(&count).Error
	return count > 0, err
}

// HasDateSlot reports whether a date slot covers exactly timeRange on date,
// booked or not.
func (r *Repository) HasDateSlot(ctx context.Context, tx *gorm.DB, workerID int64, date, timeRange string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&DateSlot{}).
		Where("worker_id = ? AND date = ? AND time_range = ?", workerID, date, timeRange).
		Count(&count).Error
	return count > 0, err
}

// Reserve flips the referenced slot from available to taken. It returns false
// when the slot does not exist or is already taken. For a DateRef the stored
// time range is copied into the returned ref.
func (r *Repository) Reserve(ctx context.Context, tx *gorm.DB, workerID int64, ref SlotRef) (SlotRef, bool, error) {
	db := tx.WithContext(ctx)

	switch ref := ref.(type) {
	case FixedRef:
		res := db.Model(&FixedSlot{}).
			Where("worker_id = ? AND day_of_week = ? AND time_range = ? AND enabled = ?",
				workerID, int(ref.Day), ref.TimeRange.String(), true).
			Update("enabled", false)
		if res.Error != nil {
			return nil, false, res.Error
		}
		return ref, res.RowsAffected == 1, nil

	case DateRef:
		res := db.Model(&DateSlot{}).
			Where("id = ? AND worker_id = ? AND date = ? AND booked = ?", ref.SlotID, workerID, ref.Date, false).
			Update("booked", true)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected != 1 {
			return ref, false, nil
		}
		var slot DateSlot
		if err := db.First(&slot, "id = ?", ref.SlotID).Error; err != nil {
			return nil, false, err
		}
		ref.TimeRange = slot.Range()
		return ref, true, nil
	}

	return nil, false, ErrInvalidSlotID
}

// Release is the mirror of Reserve. It returns false when the slot was
// already available or no longer exists.
func (r *Repository) Release(ctx context.Context, tx *gorm.DB, workerID int64, ref SlotRef) (bool, error) {
	db := tx.WithContext(ctx)

	var res *gorm.DB
	switch ref := ref.(type) {
	case FixedRef:
		res = db.Model(&FixedSlot{}).
			Where("worker_id = ? AND day_of_week = ? AND time_range = ? AND enabled = ?",
				workerID, int(ref.Day), ref.TimeRange.String(), false).
			Update("enabled", true)
	case DateRef:
		res = db.Model(&DateSlot{}).
			Where("id = ? AND worker_id = ? AND booked = ?", ref.SlotID, workerID, true).
			Update("booked", false)
	default:
		return false, ErrInvalidSlotID
	}

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
