package cart

import (
	"cmp"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/campusprint/campusprint-backend/api/middleware"
	"github.com/campusprint/campusprint-backend/api/responses"
	"github.com/campusprint/campusprint-backend/api/validators"
	internalcart "github.com/campusprint/campusprint-backend/internal/cart"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const (
	filesField    = "files"
	metadataField = "metadata"
	// parts beyond this stay on disk while the form is parsed
	formMemoryBytes = 8 << 20
)

// Get returns the student's cart with its subtotal.
func Get(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		cart, err := svc.Get(r.Context(), userID)
		if err != nil {
			return err
		}
		responses.WriteSuccess(w, "Cart items retrieved successfully", cart)
		return nil
	})
}

// AddItems accepts a multipart form with one or more "files" parts and a
// "metadata" JSON array describing each file in order.
func AddItems(svc internalcart.Service, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		if maxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		if err := r.ParseMultipartForm(formMemoryBytes); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
		}
		defer r.MultipartForm.RemoveAll()

		metadata, err := parseMetadata(r.FormValue(metadataField))
		if err != nil {
			return err
		}
		files, closeAll, err := openUploads(r.MultipartForm.File[filesField])
		defer closeAll()
		if err != nil {
			return err
		}

		items, err := svc.AddItems(r.Context(), userID, internalcart.AddItemsInput{Files: files, Metadata: metadata})
		if err != nil {
			return err
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, "Cart items added successfully", items)
		return nil
	})
}

// DeleteItem removes one item and its stored file.
func DeleteItem(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return responses.Handle(logg, func(w http.ResponseWriter, r *http.Request) error {
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return err
		}
		itemID, err := validators.ParseUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			return err
		}
		if err := svc.DeleteItem(r.Context(), userID, itemID); err != nil {
			return err
		}
		responses.WriteSuccess(w, "Cart item deleted", nil)
		return nil
	})
}

// openUploads opens every part. closeAll is always safe to call, including
// after an error.
func openUploads(headers []*multipart.FileHeader) ([]internalcart.UploadFile, func(), error) {
	files := make([]internalcart.UploadFile, 0, len(headers))
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			return nil, closeAll, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
		}
		opened = append(opened, file)
		files = append(files, uploadFromHeader(header, file))
	}
	return files, closeAll, nil
}

func parseMetadata(raw string) ([]internalcart.ItemMetadata, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "metadata is required")
	}
	var metadata []internalcart.ItemMetadata
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "metadata must be a JSON array")
	}
	for i := range metadata {
		if err := validators.ValidateStruct(&metadata[i]); err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				return nil, typed.WithDetails(map[string]any{"index": i, "fields": typed.Details()})
			}
			return nil, err
		}
	}
	return metadata, nil
}

func uploadFromHeader(header *multipart.FileHeader, file multipart.File) internalcart.UploadFile {
	return internalcart.UploadFile{
		Filename:    header.Filename,
		ContentType: cmp.Or(header.Header.Get("Content-Type"), "application/octet-stream"),
		Size:        header.Size,
		Body:        file,
	}
}
