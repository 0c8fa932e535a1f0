package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cloudbigquery "cloud.google.com/go/bigquery"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/campusprint/campusprint-backend/internal/analytics/types"
	"github.com/campusprint/campusprint-backend/pkg/bigquery"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

// TopShopCount is how many shops the leaderboard returns.
const TopShopCount = 5

// MarketplaceService answers platform dashboard queries from order_events.
type MarketplaceService interface {
	Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

type marketplace struct {
	bq    rowQuerier
	table string
}

func NewMarketplaceService(client *bigquery.Client) (MarketplaceService, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	if client.OrdersTable() == "" {
		return nil, errors.New("orders table required")
	}
	return &marketplace{bq: client, table: client.TableRef(client.OrdersTable())}, nil
}

type dailyRow struct {
	Day        string `bigquery:"day"`
	Orders     int64  `bigquery:"orders"`
	Expired    int64  `bigquery:"expired"`
	Revenue    int64  `bigquery:"revenue"`
	Commission int64  `bigquery:"commission"`
}

type labelRow struct {
	Label string `bigquery:"label"`
	Value int64  `bigquery:"value"`
}

type customersRow struct {
	AOV       cloudbigquery.NullFloat64 `bigquery:"aov"`
	New       int64                     `bigquery:"new_customers"`
	Returning int64                     `bigquery:"returning_customers"`
}

// Query runs the three statements concurrently. Money is in paise.
func (m *marketplace) Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	where, params := Filter(req)
	topParams := append(params[:len(params):len(params)], cloudbigquery.QueryParameter{Name: "top", Value: TopShopCount})

	var (
		days      []dailyRow
		shops     []labelRow
		customers []customersRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		days, err = collect[dailyRow](gctx, m.bq, Statement(dailySQL, m.table, where), params)
		return err
	})
	g.Go(func() (err error) {
		shops, err = collect[labelRow](gctx, m.bq, Statement(topShopsSQL, m.table, where), topParams)
		return err
	})
	g.Go(func() (err error) {
		customers, err = collect[customersRow](gctx, m.bq, Statement(customersSQL, m.table, where), params)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marketplace analytics unavailable")
	}
	return assemble(days, shops, customers), nil
}

func assemble(days []dailyRow, shops []labelRow, customers []customersRow) *types.MarketplaceQueryResponse {
	resp := &types.MarketplaceQueryResponse{
		OrdersSeries:     make([]types.TimeSeriesPoint, 0, len(days)),
		PaidRevenue:      make([]types.TimeSeriesPoint, 0, len(days)),
		CommissionSeries: make([]types.TimeSeriesPoint, 0, len(days)),
		ExpiredSeries:    make([]types.TimeSeriesPoint, 0, len(days)),
		TopShops:         make([]types.LabelValue, 0, len(shops)),
	}
	for _, d := range days {
		resp.OrdersSeries = append(resp.OrdersSeries, types.TimeSeriesPoint{Date: d.Day, Value: d.Orders})
		resp.PaidRevenue = append(resp.PaidRevenue, types.TimeSeriesPoint{Date: d.Day, Value: d.Revenue})
		resp.CommissionSeries = append(resp.CommissionSeries, types.TimeSeriesPoint{Date: d.Day, Value: d.Commission})
		resp.ExpiredSeries = append(resp.ExpiredSeries, types.TimeSeriesPoint{Date: d.Day, Value: d.Expired})
	}
	for _, s := range shops {
		resp.TopShops = append(resp.TopShops, types.LabelValue{Label: s.Label, Value: s.Value})
	}
	if len(customers) > 0 {
		c := customers[0]
		if c.AOV.Valid {
			resp.AOV = c.AOV.Float64
		}
		resp.NewCustomers, resp.ReturningCustomers = c.New, c.Returning
	}
	return resp
}

// collect drains every row of sql into a slice of T.
func collect[T any](ctx context.Context, bq rowQuerier, sql string, params []cloudbigquery.QueryParameter) ([]T, error) {
	it, err := bq.Query(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	var out []T
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %T: %w", row, err)
		}
		out = append(out, row)
	}
}

func ValidateRequest(req types.MarketplaceQueryRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return nil
}

// Filter renders the dimension predicate. Values are always bound as
// parameters, never spliced into the SQL.
func Filter(req types.MarketplaceQueryRequest) (string, []cloudbigquery.QueryParameter) {
	where := []string{"TRUE"}
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start.UTC()},
		{Name: "end", Value: req.End.UTC()},
	}
	bind := func(column, name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			where = append(where, column+" = @"+name)
			params = append(params, cloudbigquery.QueryParameter{Name: name, Value: value})
		}
	}
	bind("stationary_id", "stationaryID", req.StationaryID)
	bind("college_id", "collegeID", req.CollegeID)
	return strings.Join(where, " AND "), params
}

// Statement fills a statement template with the table and predicate.
func Statement(tmpl, table, where string) string {
	return fmt.Sprintf(tmpl, table, where)
}
