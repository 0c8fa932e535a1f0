package query

import (
	"strings"
	"testing"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

var window = types.MarketplaceQueryRequest{
	Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
}

func TestFilterBindsOptionalDimensions(t *testing.T) {
	where, params := Filter(window)
	assert.Equal(t, "TRUE", where)
	assert.Len(t, params, 2)

	req := window
	req.StationaryID, req.CollegeID = " shop-1 ", "college-1"
	where, params = Filter(req)
	assert.Equal(t, "TRUE AND stationary_id = @stationaryID AND college_id = @collegeID", where)
	require.Len(t, params, 4)
	assert.Equal(t, "shop-1", params[2].Value)
	assert.Equal(t, "college-1", params[3].Value)
}

func TestFilterNeverSplicesValues(t *testing.T) {
	req := window
	req.StationaryID = "x' OR TRUE --"
	where, _ := Filter(req)
	for _, tmpl := range []string{dailySQL, topShopsSQL, customersSQL} {
		sql := Statement(tmpl, "`campusprint.analytics.order_events`", where)
		assert.NotContains(t, sql, "OR TRUE")
		assert.NotContains(t, sql, "%!", "template arguments do not line up")
		assert.Contains(t, sql, "campusprint.analytics.order_events")
	}
}

func TestCommissionSeriesReadsCommissionColumn(t *testing.T) {
	assert.Contains(t, dailySQL, "COALESCE(commission_fee, 0)")
	assert.NotContains(t, dailySQL, "net_earnings")
	assert.True(t, strings.Contains(Statement(dailySQL, "t", "TRUE"), "FORMAT_DATE('%F'"))
}

func TestAssembleSplitsDailyRows(t *testing.T) {
	resp := assemble(
		[]dailyRow{
			{Day: "2026-01-01", Orders: 4, Expired: 1, Revenue: 12000, Commission: 600},
			{Day: "2026-01-02", Orders: 2, Revenue: 5000, Commission: 250},
		},
		[]labelRow{{Label: "shop-1", Value: 17000}},
		[]customersRow{{AOV: cloudbigquery.NullFloat64{Float64: 2833.5, Valid: true}, New: 3, Returning: 1}},
	)

	assert.Equal(t, []types.TimeSeriesPoint{{Date: "2026-01-01", Value: 4}, {Date: "2026-01-02", Value: 2}}, resp.OrdersSeries)
	assert.Equal(t, int64(1), resp.ExpiredSeries[0].Value)
	assert.Equal(t, int64(250), resp.CommissionSeries[1].Value)
	assert.Equal(t, int64(5000), resp.PaidRevenue[1].Value)
	assert.Equal(t, "shop-1", resp.TopShops[0].Label)
	assert.InDelta(t, 2833.5, resp.AOV, 0.001)
	assert.Equal(t, int64(3), resp.NewCustomers)
	assert.Equal(t, int64(1), resp.ReturningCustomers)
}

func TestAssembleEmptyWindow(t *testing.T) {
	resp := assemble(nil, nil, []customersRow{{}})
	assert.NotNil(t, resp.OrdersSeries, "empty series must encode as []")
	assert.NotNil(t, resp.TopShops)
	assert.Zero(t, resp.AOV)
}

func TestValidateRequest(t *testing.T) {
	now := time.Now()
	assert.True(t, pkgerrors.IsCode(ValidateRequest(types.MarketplaceQueryRequest{}), pkgerrors.CodeValidation))
	assert.True(t, pkgerrors.IsCode(ValidateRequest(types.MarketplaceQueryRequest{Start: now, End: now.Add(-time.Hour)}), pkgerrors.CodeValidation))
	assert.NoError(t, ValidateRequest(window))
}

func TestNewMarketplaceServiceRequiresClient(t *testing.T) {
	_, err := NewMarketplaceService(nil)
	assert.Error(t, err)
}
