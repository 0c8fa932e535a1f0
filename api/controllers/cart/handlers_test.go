package cart

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusprint/campusprint-backend/api/middleware"
	internalcart "github.com/campusprint/campusprint-backend/internal/cart"
)

type stubCartService struct {
	userID   uuid.UUID
	input    internalcart.AddItemsInput
	contents []string
	deleted  uuid.UUID
	err      error
}

func (s *stubCartService) AddItems(ctx context.Context, userID uuid.UUID, input internalcart.AddItemsInput) ([]internalcart.CartItemDTO, error) {
	s.userID = userID
	s.input = input
	out := make([]internalcart.CartItemDTO, 0, len(input.Files))
	for i, f := range input.Files {
		body, _ := io.ReadAll(f.Body)
		s.contents = append(s.contents, string(body))
		out = append(out, internalcart.CartItemDTO{ID: uuid.New(), Name: input.Metadata[i].Name})
	}
	return out, s.err
}

func (s *stubCartService) Get(ctx context.Context, userID uuid.UUID) (*internalcart.CartDTO, error) {
	s.userID = userID
	return &internalcart.CartDTO{ID: uuid.New(), Subtotal: 40}, s.err
}

func (s *stubCartService) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	s.userID = userID
	s.deleted = itemID
	return s.err
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func multipartRequest(t *testing.T, metadata string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if metadata != "" {
		if err := mw.WriteField("metadata", metadata); err != nil {
			t.Fatalf("write metadata: %v", err)
		}
	}
	for name, content := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		header.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAddItemsForwardsFilesAndMetadata(t *testing.T) {
	svc := &stubCartService{}
	userID := uuid.New()
	req := authed(multipartRequest(t, `[{"name":"notes.pdf","fileType":"pdf","coloured":true,"quantity":2,"price":40}]`, map[string]string{"notes.pdf": "%PDF-1.4"}), userID)
	rec := httptest.NewRecorder()

	AddItems(svc, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.userID != userID {
		t.Fatalf("expected user %s got %s", userID, svc.userID)
	}
	if len(svc.input.Files) != 1 || svc.input.Files[0].ContentType != "application/pdf" || svc.input.Files[0].Filename != "notes.pdf" {
		t.Fatalf("unexpected files %+v", svc.input.Files)
	}
	if !svc.input.Metadata[0].Coloured || svc.input.Metadata[0].Quantity != 2 {
		t.Fatalf("unexpected metadata %+v", svc.input.Metadata)
	}
	if svc.contents[0] != "%PDF-1.4" {
		t.Fatalf("expected file content forwarded got %q", svc.contents[0])
	}
}

func TestAddItemsRequiresMetadata(t *testing.T) {
	svc := &stubCartService{}
	req := authed(multipartRequest(t, "", map[string]string{"notes.pdf": "%PDF"}), uuid.New())
	rec := httptest.NewRecorder()

	AddItems(svc, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.userID != uuid.Nil {
		t.Fatal("service should not be called")
	}
}

func TestAddItemsValidatesEachMetadataEntry(t *testing.T) {
	svc := &stubCartService{}
	req := authed(multipartRequest(t, `[{"name":"notes.pdf","fileType":"pdf","quantity":0}]`, map[string]string{"notes.pdf": "%PDF"}), uuid.New())
	rec := httptest.NewRecorder()

	AddItems(svc, 1<<20, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAddItemsRejectsOversizedBody(t *testing.T) {
	svc := &stubCartService{}
	big := string(bytes.Repeat([]byte("a"), 4096))
	req := authed(multipartRequest(t, `[{"name":"big.pdf","fileType":"pdf","quantity":1}]`, map[string]string{"big.pdf": big}), uuid.New())
	rec := httptest.NewRecorder()

	AddItems(svc, 512, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	Get(&stubCartService{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestDeleteItemParsesPathParam(t *testing.T) {
	svc := &stubCartService{}
	itemID := uuid.New()

	router := chi.NewRouter()
	router.Delete("/api/v1/cart/items/{itemId}", DeleteItem(svc, nil))

	req := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/"+itemID.String(), nil), uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.deleted != itemID {
		t.Fatalf("expected item %s got %s", itemID, svc.deleted)
	}

	bad := authed(httptest.NewRequest(http.MethodDelete, "/api/v1/cart/items/not-a-uuid", nil), uuid.New())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
