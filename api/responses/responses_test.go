package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/types"
)

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestWriteSuccessStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, "Order placed", map[string]int{"items": 2})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, want 201", rec.Code)
	}
	env := decodeInto[types.SuccessEnvelope](t, rec)
	data, _ := env.Data.(map[string]any)
	if !env.Success || env.Message != "Order placed" || data["items"] != float64(2) {
		t.Fatalf("envelope %+v", env)
	}
}

func TestWriteErrorPublicShape(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		message     string
		withDetails bool
	}{
		{
			name:        "validation keeps its message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "OTP is required").WithDetails(map[string]string{"field": "otp"}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			message:     "OTP is required",
			withDetails: true,
		},
		{
			name:    "dependency hides the call site",
			err:     pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("razorpay 503"), "create razorpay order"),
			status:  http.StatusBadGateway,
			code:    pkgerrors.CodeDependency,
			message: "upstream service unavailable",
		},
		{
			name:   "plain errors are internal",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			code:   pkgerrors.CodeInternal,
		},
		{
			name:   "nil still answers",
			status: http.StatusInternalServerError,
			code:   pkgerrors.CodeInternal,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(context.Background(), nil, rec, tc.err)

			if rec.Code != tc.status {
				t.Fatalf("status %d, want %d", rec.Code, tc.status)
			}
			env := decodeInto[types.ErrorEnvelope](t, rec)
			if env.Success || env.Error.Code != string(tc.code) {
				t.Fatalf("envelope %+v", env)
			}
			if tc.message != "" && (env.Message != tc.message || env.Error.Message != tc.message) {
				t.Fatalf("message %q / %q, want %q", env.Message, env.Error.Message, tc.message)
			}
			if (env.Error.Details != nil) != tc.withDetails {
				t.Fatalf("details %v, want present=%v", env.Error.Details, tc.withDetails)
			}
		})
	}
}

func TestInternalErrorsStayInTheLog(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	rec := httptest.NewRecorder()
	WriteError(context.Background(), logg, rec, errors.New("dial tcp 10.0.0.3:5432: refused"))

	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Fatalf("response leaks internals: %s", rec.Body.String())
	}
	if !decodeInto[types.ErrorEnvelope](t, rec).Error.Retryable {
		t.Fatalf("internal errors are retryable")
	}
	if !strings.Contains(logs.String(), "10.0.0.3") || !strings.Contains(logs.String(), `"level":"error"`) {
		t.Fatalf("log missing the cause: %s", logs.String())
	}
}

func TestRejectionsLogAtWarn(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))

	if !strings.Contains(logs.String(), `"level":"warn"`) || !strings.Contains(logs.String(), "request.rejected") {
		t.Fatalf("log %s", logs.String())
	}
}

func TestHandleWritesReturnedError(t *testing.T) {
	h := Handle(nil, func(w http.ResponseWriter, r *http.Request) error {
		if r.URL.Query().Get("fail") != "" {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not your shop")
		}
		WriteSuccess(w, "ok", nil)
		return nil
	})

	ok := httptest.NewRecorder()
	h(ok, httptest.NewRequest(http.MethodGet, "/", nil))
	denied := httptest.NewRecorder()
	h(denied, httptest.NewRequest(http.MethodGet, "/?fail=1", nil))

	if ok.Code != http.StatusOK || denied.Code != http.StatusForbidden {
		t.Fatalf("codes %d and %d", ok.Code, denied.Code)
	}
}
