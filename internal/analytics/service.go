package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/internal/analytics/query"
	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

// Service serves shop and platform reports.
type Service interface {
	// OwnerReport summarises the owner's shop over the trailing window of days.
	OwnerReport(ctx context.Context, ownerID uuid.UUID, days int) (*OwnerReport, error)
	// Marketplace returns platform KPIs from the BigQuery sink.
	Marketplace(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type shopLookup interface {
	FindStationaryByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Stationary, error)
}

type ServiceParams struct {
	Shops  shopLookup
	Orders *Repository
	// Marketplace is optional; without it Marketplace reports a dependency error.
	Marketplace query.MarketplaceService
}

type service struct {
	shops       shopLookup
	orders      *Repository
	marketplace query.MarketplaceService
	now         func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Shops == nil {
		return nil, fmt.Errorf("shop lookup required")
	}
	if p.Orders == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{
		shops:       p.Shops,
		orders:      p.Orders,
		marketplace: p.Marketplace,
		now:         time.Now,
	}, nil
}

func (s *service) OwnerReport(ctx context.Context, ownerID uuid.UUID, days int) (*OwnerReport, error) {
	if days < 1 || days > MaxPeriodDays {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid report period")
	}
	shop, err := s.shops.FindStationaryByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}

	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)
	orders, err := s.orders.DeliveredOrders(ctx, shop.ID, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered orders")
	}

	report := BuildOwnerReport(shop, orders, days)
	return &report, nil
}

func (s *service) Marketplace(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	if s.marketplace == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "marketplace analytics not configured")
	}
	if err := query.ValidateRequest(req); err != nil {
		return nil, err
	}
	return s.marketplace.Query(ctx, req)
}
