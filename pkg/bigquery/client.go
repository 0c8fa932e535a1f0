// Package bigquery owns the connection to the analytics dataset.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/gcp"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errNotInitialized = errors.New("bigquery client not initialized")
	errNoTable        = errors.New("bigquery table name is required")
)

// Client is scoped to one dataset. Only the order_events table is written
// and queried today.
type Client struct {
	bq          *bigquery.Client
	dataset     *bigquery.Dataset
	ordersTable string
}

// NewClient connects and fails fast when the dataset or the orders table is
// missing, so a worker never starts acking events it cannot store.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	c, err := newClient(ctx, gcpCfg.ProjectID, cfg, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "dataset", c.dataset.DatasetID), "bigquery client initialized")
	}
	return c, nil
}

func newClient(ctx context.Context, projectID string, cfg config.BigQueryConfig, opts ...option.ClientOption) (*Client, error) {
	projectID = strings.TrimSpace(projectID)
	datasetID := strings.TrimSpace(cfg.Dataset)
	table := strings.TrimSpace(cfg.OrdersTable)
	switch {
	case projectID == "":
		return nil, errors.New("gcp project id is required")
	case datasetID == "":
		return nil, errors.New("bigquery dataset is required")
	case table == "":
		return nil, errNoTable
	}
	bq, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	return &Client{bq: bq, dataset: bq.Dataset(datasetID), ordersTable: table}, nil
}

// OrdersTable is the table order lifecycle rows are streamed into.
func (c *Client) OrdersTable() string {
	if c == nil {
		return ""
	}
	return c.ordersTable
}

// TableRef renders the backquoted `project.dataset.table` name for SQL.
func (c *Client) TableRef(table string) string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return fmt.Sprintf("`%s.%s.%s`", c.dataset.ProjectID, c.dataset.DatasetID, table)
}

// Ping reads the dataset and orders table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset", c.dataset.DatasetID, err)
	}
	if _, err := c.dataset.Table(c.ordersTable).Metadata(ctx); err != nil {
		return describe("table", c.ordersTable, err)
	}
	return nil
}

// InsertRows streams rows into table. Rows may be structs or ValueSavers.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errNoTable
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// Query runs a parameterised statement and returns its rows.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.bq == nil {
		return nil, errNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("sql query is required")
	}
	q := c.bq.Query(sql)
	q.Parameters = params
	return q.Read(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func describe(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}
