package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/middleware"
	internalanalytics "github.com/campusprint/campusprint-backend/internal/analytics"
	"github.com/campusprint/campusprint-backend/internal/analytics/types"
)

type stubAnalyticsService struct {
	ownerID uuid.UUID
	days    int
	req     *types.MarketplaceQueryRequest
}

func (s *stubAnalyticsService) OwnerReport(ctx context.Context, ownerID uuid.UUID, days int) (*internalanalytics.OwnerReport, error) {
	s.ownerID = ownerID
	s.days = days
	return &internalanalytics.OwnerReport{}, nil
}

func (s *stubAnalyticsService) Marketplace(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	s.req = &req
	return &types.MarketplaceQueryResponse{}, nil
}

func withOwner(req *http.Request, ownerID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), ownerID.String()))
}

func TestOwnerReportDefaultsToThirtyDays(t *testing.T) {
	svc := &stubAnalyticsService{}
	ownerID := uuid.New()
	rec := httptest.NewRecorder()

	OwnerReport(svc, nil).ServeHTTP(rec, withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/owner/analytics", nil), ownerID))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.days != 30 || svc.ownerID != ownerID {
		t.Fatalf("unexpected call owner=%s days=%d", svc.ownerID, svc.days)
	}
}

func TestOwnerReportPeriod(t *testing.T) {
	svc := &stubAnalyticsService{}
	rec := httptest.NewRecorder()
	OwnerReport(svc, nil).ServeHTTP(rec, withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/owner/analytics?period=7", nil), uuid.New()))
	if rec.Code != http.StatusOK || svc.days != 7 {
		t.Fatalf("expected 7 day report got code=%d days=%d", rec.Code, svc.days)
	}

	rec = httptest.NewRecorder()
	OwnerReport(svc, nil).ServeHTTP(rec, withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/owner/analytics?period=week", nil), uuid.New()))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestMarketplaceRange(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	restore := timeNowUTC
	timeNowUTC = func() time.Time { return now }
	t.Cleanup(func() { timeNowUTC = restore })

	svc := &stubAnalyticsService{}
	shopID := uuid.New()
	rec := httptest.NewRecorder()
	Marketplace(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics/marketplace?preset=7d&stationaryId="+shopID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !svc.req.End.Equal(now) || !svc.req.Start.Equal(now.Add(-7*24*time.Hour)) {
		t.Fatalf("unexpected window %s..%s", svc.req.Start, svc.req.End)
	}
	if svc.req.StationaryID != shopID.String() || svc.req.CollegeID != "" {
		t.Fatalf("unexpected filters %+v", svc.req)
	}
}

func TestResolveAnalyticsRange(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		query string
		ok    bool
	}{
		{"default preset", "", true},
		{"explicit range", "?from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z", true},
		{"half range", "?from=2026-03-01T00:00:00Z", false},
		{"reversed", "?from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z", false},
		{"unknown preset", "?preset=2w", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := resolveAnalyticsRange(httptest.NewRequest(http.MethodGet, "/"+tc.query, nil), now)
			if (err == nil) != tc.ok {
				t.Fatalf("expected ok=%v got err=%v", tc.ok, err)
			}
		})
	}
}

func TestMarketplaceRejectsBadFilters(t *testing.T) {
	cases := map[string]string{
		"bad college id": "?collegeId=abc",
		"bad preset":     "?preset=2w",
		"bad from":       "?from=yesterday&to=2026-03-02T00:00:00Z",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubAnalyticsService{}
			rec := httptest.NewRecorder()
			Marketplace(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/analytics/marketplace"+query, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", rec.Code)
			}
			if svc.req != nil {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestPresetIsCaseInsensitive(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	start, end, err := resolveAnalyticsRange(httptest.NewRequest(http.MethodGet, "/?preset=90D", nil), now)
	if err != nil || !end.Equal(now) || !start.Equal(now.Add(-90*24*time.Hour)) {
		t.Fatalf("got %s..%s err=%v", start, end, err)
	}
}
