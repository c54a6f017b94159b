package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"servicehub/internal/domain/availability"
)

// Actor narrows a conditional status update to who may perform it.
type Actor int

const (
	ActorWorker Actor = iota
	ActorParticipant
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

func (r *Repository) Create(ctx context.Context, tx *gorm.DB, b *Booking) error {
	return tx.WithContext(ctx).Create(b).Error
}

func (r *Repository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*Booking, error) {
	var b Booking
	if err := tx.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Transition moves a booking to status `to` only if it is currently in one of
// `from` and actorID may act on it. It returns the number of rows changed.
func (r *Repository) Transition(ctx context.Context, tx *gorm.DB, id, actorID int64, actor Actor, from []Status, to Status, reason string) (int64, error) {
	q := tx.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND status IN ?", id, statusStrings(from))

	switch actor {
	case ActorWorker:
		q = q.Where("worker_id = ?", actorID)
	case ActorParticipant:
		q = q.Where("(user_id = ? OR worker_id = ?)", actorID, actorID)
	}

	updates := map[string]any{
		"status":     string(to),
		"updated_at": time.Now(),
	}
	if reason != "" {
		updates["cancellation_reason"] = reason
	}

	res := q.Updates(updates)
	return res.RowsAffected, res.Error
}

// AttachPayment links a payment to a payable booking. A booking is payable
// while it is pending or accepted, has no payment yet and uses the given
// payment method.
func (r *Repository) AttachPayment(ctx context.Context, tx *gorm.DB, id int64, paymentID uuid.UUID, method string) (int64, error) {
	res := tx.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND payment_id IS NULL AND payment_method = ? AND status IN ?",
			id, method, statusStrings([]Status{StatusPending, StatusAccepted})).
		Updates(map[string]any{
			"payment_id": paymentID,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// DetachPayment unlinks paymentID from the booking so another payment can be
// attached.
func (r *Repository) DetachPayment(ctx context.Context, tx *gorm.DB, id int64, paymentID uuid.UUID) (int64, error) {
	res := tx.WithContext(ctx).Model(&Booking{}).
		Where("id = ? AND payment_id = ?", id, paymentID).
		Updates(map[string]any{
			"payment_id": nil,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// HasActiveFixedBooking implements availability.ActiveBookingChecker.
func (r *Repository) HasActiveFixedBooking(ctx context.Context, tx *gorm.DB, workerID int64) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&Booking{}).
		Where("worker_id = ? AND slot_kind = ? AND status IN ?",
			workerID, availability.SlotKindFixed, statusStrings([]Status{StatusPending, StatusAccepted})).
		Count(&count).Error
	return count > 0, err
}

// HasActiveBookingAt implements availability.ActiveBookingChecker.
func (r *Repository) HasActiveBookingAt(ctx context.Context, tx *gorm.DB, workerID int64, date, timeRange string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&Booking{}).
		Where("worker_id = ? AND date = ? AND time_range = ? AND status IN ?",
			workerID, date, timeRange, statusStrings([]Status{StatusPending, StatusAccepted})).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListByWorker(ctx context.Context, workerID int64, f ListFilter) ([]Booking, int64, error) {
	return r.list(ctx, "worker_id = ?", workerID, f)
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, f ListFilter) ([]Booking, int64, error) {
	return r.list(ctx, "user_id = ?", userID, f)
}

func (r *Repository) list(ctx context.Context, cond string, id int64, f ListFilter) ([]Booking, int64, error) {
	f = f.normalized()

	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&Booking{}).Where(cond, id)
		if f.Status != "" {
			q = q.Where("status = ?", string(f.Status))
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []Booking
	if err := scoped().Order("created_at DESC, id DESC").Limit(f.Limit).Offset(f.Offset).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
