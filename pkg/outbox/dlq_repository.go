package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
)

// deadLetterReasonLimit bounds error_message so one huge upstream error body
// cannot bloat the table.
const deadLetterReasonLimit = 1024

// DLQRepository stores outbox rows the relay gave up on.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx must run in the transaction that marks the outbox row dead, so a
// row is never both pending and dead-lettered.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("dead letter insert needs a transaction")
	}
	if msg := entry.ErrorMessage; msg != nil && len(*msg) > deadLetterReasonLimit {
		short := (*msg)[:deadLetterReasonLimit]
		entry.ErrorMessage = &short
	}
	return tx.Create(&entry).Error
}

func (r *DLQRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.OutboxDLQ{}).
		Where("failed_at >= ?", since.UTC()).
		Count(&n).Error
	return n, err
}
