package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/db/models"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	"github.com/campusprint/campusprint-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForShop(ctx context.Context, stationaryID, id uuid.UUID) (*models.Order, error)
	FindForCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)
	VoidCommission(ctx context.Context, orderID uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]models.Order, *pagination.Cursor, error)
	FindExpirable(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
