package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
)

// Repository reads the order ledger for shop reports.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DeliveredOrders returns a shop's DELIVERED orders created inside [start, end],
// newest first.
func (r *Repository) DeliveredOrders(ctx context.Context, stationaryID uuid.UUID, start, end time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("stationary_id = ? AND status = ? AND created_at >= ? AND created_at <= ?",
			stationaryID, enums.OrderStatusDelivered, start.UTC(), end.UTC()).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}
