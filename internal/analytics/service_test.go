package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	"github.com/campusprint/campusprint-backend/internal/catalog"
	"github.com/campusprint/campusprint-backend/pkg/db/dbtest"
	"github.com/campusprint/campusprint-backend/pkg/enums"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

type fakeMarketplace struct {
	lastReq types.MarketplaceQueryRequest
}

func (f *fakeMarketplace) Query(_ context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	f.lastReq = req
	return &types.MarketplaceQueryResponse{AOV: 42}, nil
}

func TestOwnerReportCountsDeliveredOrdersInWindow(t *testing.T) {
	conn := dbtest.Open(t)
	campus := dbtest.SeedCampus(t, conn, true)
	other := dbtest.SeedCampus(t, conn, true)
	now := time.Now().UTC()

	dbtest.SeedOrder(t, conn, campus, dbtest.OrderSpec{Status: enums.OrderStatusDelivered, TotalPrice: 120, CreatedAt: now.Add(-24 * time.Hour)})
	dbtest.SeedOrder(t, conn, campus, dbtest.OrderSpec{Status: enums.OrderStatusDelivered, TotalPrice: 80, CreatedAt: now.Add(-48 * time.Hour)})
	dbtest.SeedOrder(t, conn, campus, dbtest.OrderSpec{Status: enums.OrderStatusDelivered, TotalPrice: 500, CreatedAt: now.Add(-40 * 24 * time.Hour)})
	dbtest.SeedOrder(t, conn, campus, dbtest.OrderSpec{Status: enums.OrderStatusAccepted, TotalPrice: 300, CreatedAt: now.Add(-time.Hour)})
	dbtest.SeedOrder(t, conn, other, dbtest.OrderSpec{Status: enums.OrderStatusDelivered, TotalPrice: 999, CreatedAt: now.Add(-time.Hour)})

	svc, err := NewService(ServiceParams{Shops: catalog.NewRepository(conn), Orders: NewRepository(conn)})
	require.NoError(t, err)

	report, err := svc.OwnerReport(context.Background(), campus.Owner.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, campus.Shop.Name, report.Overview.ShopName)
	assert.Equal(t, int64(200), report.Revenue.Total)
	assert.Equal(t, 2, report.Revenue.OrderCount)
	assert.Equal(t, int64(7), report.Revenue.Average, "200/30 = 6.67")
	assert.Equal(t, 1, report.Customers.Total)
	assert.Equal(t, int64(200), report.Customers.AverageSpend)
	require.Len(t, report.RecentOrders, 2)
	assert.Equal(t, int64(120), report.RecentOrders[0].Amount, "newest first")
	assert.Equal(t, campus.Student.Name, report.RecentOrders[0].Customer)
}

func TestOwnerReportWithoutShop(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{Shops: catalog.NewRepository(conn), Orders: NewRepository(conn)})
	require.NoError(t, err)

	_, err = svc.OwnerReport(context.Background(), uuid.New(), 30)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.OwnerReport(context.Background(), uuid.New(), 0)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarketplaceRequiresSink(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	req := types.MarketplaceQueryRequest{Start: now.Add(-time.Hour), End: now}

	svc, err := NewService(ServiceParams{Shops: catalog.NewRepository(conn), Orders: NewRepository(conn)})
	require.NoError(t, err)
	_, err = svc.Marketplace(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	fake := &fakeMarketplace{}
	svc, err = NewService(ServiceParams{Shops: catalog.NewRepository(conn), Orders: NewRepository(conn), Marketplace: fake})
	require.NoError(t, err)
	res, err := svc.Marketplace(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 42.0, res.AOV)
	assert.Equal(t, req, fake.lastReq)
}
