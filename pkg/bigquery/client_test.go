package bigquery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/campusprint/campusprint-backend/pkg/config"
)

// datasetAPI answers BigQuery REST metadata calls for one dataset. Tables not
// listed in tables return 404.
func datasetAPI(t *testing.T, tables ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/datasets/campusprint"):
			_, _ = io.WriteString(w, `{"datasetReference":{"projectId":"cp-dev","datasetId":"campusprint"}}`)
			return
		case strings.Contains(path, "/datasets/campusprint/tables/"):
			name := path[strings.LastIndex(path, "/")+1:]
			for _, table := range tables {
				if table == name {
					_, _ = fmt.Fprintf(w, `{"tableReference":{"projectId":"cp-dev","datasetId":"campusprint","tableId":%q}}`, name)
					return
				}
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Not found"}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, srv *httptest.Server, cfg config.BigQueryConfig) *Client {
	t.Helper()
	c, err := newClient(context.Background(), "cp-dev", cfg,
		option.WithEndpoint(srv.URL+"/bigquery/v2/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPingChecksDatasetAndOrdersTable(t *testing.T) {
	ok := testClient(t, datasetAPI(t, "order_events"), config.BigQueryConfig{Dataset: "campusprint", OrdersTable: "order_events"})
	if err := ok.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	missing := testClient(t, datasetAPI(t), config.BigQueryConfig{Dataset: "campusprint", OrdersTable: "order_events"})
	err := missing.Ping(context.Background())
	if err == nil || !strings.Contains(err.Error(), `table "order_events" does not exist`) {
		t.Fatalf("expected missing table error, got %v", err)
	}
}

func TestNewClientRequiresNames(t *testing.T) {
	cases := map[string]struct {
		project string
		cfg     config.BigQueryConfig
	}{
		"project": {project: " ", cfg: config.BigQueryConfig{Dataset: "campusprint", OrdersTable: "order_events"}},
		"dataset": {project: "cp-dev", cfg: config.BigQueryConfig{OrdersTable: "order_events"}},
		"table":   {project: "cp-dev", cfg: config.BigQueryConfig{Dataset: "campusprint", OrdersTable: " "}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := newClient(context.Background(), tc.project, tc.cfg, option.WithoutAuthentication()); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestTableRefAndOrdersTable(t *testing.T) {
	c := testClient(t, datasetAPI(t), config.BigQueryConfig{Dataset: " campusprint ", OrdersTable: " order_events "})
	if got := c.OrdersTable(); got != "order_events" {
		t.Fatalf("expected trimmed table, got %q", got)
	}
	if got := c.TableRef(c.OrdersTable()); got != "`cp-dev.campusprint.order_events`" {
		t.Fatalf("unexpected table ref %s", got)
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if c.OrdersTable() != "" || c.TableRef("x") != "" {
		t.Fatalf("nil client should render empty names")
	}
	if err := c.InsertRows(context.Background(), "order_events", []any{1}); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized error, got %v", err)
	}
	if _, err := c.Query(context.Background(), "SELECT 1", nil); !errors.Is(err, errNotInitialized) {
		t.Fatalf("expected not initialized error, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil client: %v", err)
	}
}
