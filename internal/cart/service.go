package cart

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
	"github.com/campusprint/campusprint-backend/pkg/storage/gcs"
)

const maxFilesPerRequest = 20

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the student's cart.
type Service interface {
	AddItems(ctx context.Context, userID uuid.UUID, input AddItemsInput) ([]CartItemDTO, error)
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
}

type service struct {
	repo    *Repository
	tx      txRunner
	store   gcs.ObjectStore
	uploads config.UploadsConfig
	logg    *logger.Logger
	newKey  func() string
}

// NewService builds a cart service storing print files in store.
func NewService(repo *Repository, tx txRunner, store gcs.ObjectStore, uploads config.UploadsConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		store:   store,
		uploads: uploads,
		logg:    logg,
		newKey:  uuid.NewString,
	}, nil
}

// AddItems uploads every file and then records all items in one transaction.
// Uploaded objects are removed again if the database write fails.
func (s *service) AddItems(ctx context.Context, userID uuid.UUID, input AddItemsInput) ([]CartItemDTO, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	items := make([]models.CartItem, 0, len(input.Files))
	uploaded := make([]string, 0, len(input.Files))
	for i, file := range input.Files {
		meta := input.Metadata[i]
		object := s.objectKey(userID, file.Filename)
		url, err := s.store.Upload(ctx, object, file.ContentType, file.Body)
		if err != nil {
			s.cleanup(ctx, uploaded)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload print file")
		}
		uploaded = append(uploaded, object)
		items = append(items, models.CartItem{
			Name:     strings.TrimSpace(meta.Name),
			FileURL:  url,
			FileKey:  object,
			FileType: strings.TrimSpace(meta.FileType),
			PrintOptions: models.PrintOptions{
				Coloured: meta.Coloured,
				Duplex:   meta.Duplex,
				Spiral:   meta.Spiral,
				Hardbind: meta.Hardbind,
			},
			Quantity: meta.Quantity,
			Price:    meta.Price,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		for i := range items {
			items[i].CartID = cart.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart items")
		}
		return nil
	})
	if err != nil {
		s.cleanup(ctx, uploaded)
		return nil, err
	}

	out := make([]CartItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, ItemFromModel(item))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return FromModel(cart), nil
}

// DeleteItem removes the row first; the stored file is deleted afterwards on a
// best-effort basis.
func (s *service) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart item")
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, item.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart item")
	}
	s.cleanup(ctx, []string{item.FileKey})
	return nil
}

func (s *service) validate(input AddItemsInput) error {
	if len(input.Files) == 0 || len(input.Files) != len(input.Metadata) {
		return pkgerrors.New(pkgerrors.CodeValidation, "files and metadata count mismatch or missing")
	}
	if len(input.Files) > maxFilesPerRequest {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d files per request", maxFilesPerRequest)
	}
	maxBytes := s.uploads.MaxUploadBytes()
	for i, file := range input.Files {
		meta := input.Metadata[i]
		details := map[string]any{"index": i}
		if file.Body == nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "file body missing").WithDetails(details)
		}
		if maxBytes > 0 && file.Size > maxBytes {
			return pkgerrors.New(pkgerrors.CodeValidation, "file too large").WithDetails(details)
		}
		if !s.allowedType(file.ContentType) {
			return pkgerrors.New(pkgerrors.CodeValidation, "file type not allowed").WithDetails(details)
		}
		if strings.TrimSpace(meta.Name) == "" || strings.TrimSpace(meta.FileType) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name and fileType are required").WithDetails(details)
		}
		if meta.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").WithDetails(details)
		}
		if meta.Price < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").WithDetails(details)
		}
	}
	return nil
}

func (s *service) allowedType(contentType string) bool {
	if len(s.uploads.AllowedTypes) == 0 {
		return true
	}
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	for _, allowed := range s.uploads.AllowedTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), base) {
			return true
		}
	}
	return false
}

func (s *service) objectKey(userID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	prefix := strings.Trim(s.uploads.KeyPrefix, "/")
	if prefix == "" {
		prefix = "cart"
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, userID, s.newKey(), ext)
}

func (s *service) cleanup(ctx context.Context, objects []string) {
	for _, object := range objects {
		if err := s.store.DeleteObject(ctx, "", object); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "object", object), "cart.file_cleanup_failed", err)
		}
	}
}
