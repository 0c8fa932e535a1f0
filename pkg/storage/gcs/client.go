// Package gcs stores uploaded print files in a Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/gcp"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

const (
	defaultPublicBase = "https://storage.googleapis.com"
	pingTimeout       = 5 * time.Second
)

var errNotInitialized = errors.New("gcs client not initialized")

// ObjectStore is what the cart depends on for uploaded print files.
type ObjectStore interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Client wraps the Cloud Storage JSON API for a single print-file bucket.
type Client struct {
	objects    *storage.ObjectsService
	bucket     string
	publicBase string
}

// NewClient authenticates with the configured credentials and checks the
// bucket is listable before returning.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	opts := gcp.ClientOptions(gcpCfg, storage.DevstorageReadWriteScope)
	c, err := newClient(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", c.bucket), "gcs client initialized")
	}
	return c, nil
}

func newClient(ctx context.Context, cfg config.GCSConfig, opts ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBase), "/")
	if base == "" {
		base = defaultPublicBase
	}
	return &Client{objects: storage.NewObjectsService(svc), bucket: bucket, publicBase: base}, nil
}

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.objects.List(c.bucket).MaxResults(1).Fields("items/name").Context(ctx).Do(); err != nil {
		return fmt.Errorf("listing bucket %q: %w", c.bucket, err)
	}
	return nil
}

// Close is a no-op; the storage service holds no long-lived connections of its own.
func (c *Client) Close() error { return nil }

// Upload writes body to object in the print-file bucket and returns its public URL.
func (c *Client) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	if c == nil || c.objects == nil {
		return "", errNotInitialized
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return "", errors.New("object name is required")
	}
	meta := &storage.Object{Name: object, ContentType: contentType}
	var media []googleapi.MediaOption
	if contentType != "" {
		media = append(media, googleapi.ContentType(contentType))
	}
	if _, err := c.objects.Insert(c.bucket, meta).Media(body, media...).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("uploading %q: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// DeleteObject removes an object. An empty bucket means the print-file
// bucket, and an object that is already gone is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	if c == nil || c.objects == nil {
		return errNotInitialized
	}
	if bucket == "" {
		bucket = c.bucket
	}
	err := c.objects.Delete(bucket, object).Context(ctx).Do()
	if err == nil || isNotFound(err) {
		return nil
	}
	return fmt.Errorf("deleting %q: %w", object, err)
}

// PublicURL is the browser-facing address of object in the print-file bucket.
func (c *Client) PublicURL(object string) string {
	escaped := strings.Split(object, "/")
	for i, part := range escaped {
		escaped[i] = url.PathEscape(part)
	}
	return c.publicBase + "/" + c.bucket + "/" + strings.Join(escaped, "/")
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
