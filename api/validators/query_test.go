package validators

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"

	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
)

func TestQueryTextCutsOnCharacterBoundary(t *testing.T) {
	q := url.Values{}
	q.Set("state", "  Tamil Nadu தமிழ்நாடு  ")
	req := httptest.NewRequest("GET", "/api/v1/colleges?"+q.Encode(), nil)

	got := QueryText(req, "state", 14)
	if !utf8.ValidString(got) {
		t.Fatalf("cut produced invalid utf-8: %q", got)
	}
	if utf8.RuneCountInString(got) > 14 {
		t.Fatalf("expected at most 14 characters, got %q", got)
	}
	if !strings.HasPrefix(got, "Tamil Nadu") {
		t.Fatalf("unexpected value %q", got)
	}

	if got := QueryText(req, "state", 0); got != "Tamil Nadu தமிழ்நாடு" {
		t.Fatalf("zero limit should only trim, got %q", got)
	}
	if got := QueryText(req, "country", 10); got != "" {
		t.Fatalf("missing key should be empty, got %q", got)
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/owner/orders?limit=500&cursor=x", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for out of range limit, got %v", err)
	}
	if _, err := ParseQueryInt(req, "cursor", 0, 0, 10); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for non numeric value, got %v", err)
	}
	if v, err := ParseQueryInt(req, "page", 1, 1, 10); err != nil || v != 1 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
}

func TestParseOptionalUUID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/admin/orders?collegeId=not-a-uuid", nil)
	if _, err := ParseOptionalUUID(req, "collegeId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	id, err := ParseOptionalUUID(req, "stationaryId")
	if err != nil || id != nil {
		t.Fatalf("missing filter should be nil, got %v %v", id, err)
	}
}
