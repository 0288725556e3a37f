// Package storage uploads user media to the configured object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"unistay/pkg/breaker"
	"unistay/pkg/config"
	"unistay/pkg/logger"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	BreakerName   = "object-store"
	uploadTimeout = 20 * time.Second
)

var ErrNotConfigured = errors.New("object storage is not configured")

type Object struct {
	URL      string
	PublicID string
}

type Uploader interface {
	// Upload stores r under folder/publicID, replacing any previous object.
	Upload(ctx context.Context, r io.Reader, folder, publicID string) (*Object, error)
}

// New returns a Cloudinary uploader, or one that always fails with
// ErrNotConfigured when CLOUDINARY_URL is empty.
func New(cfg *config.Config) (Uploader, error) {
	if cfg.CloudinaryURL == "" {
		cfg.Log.Warn("CLOUDINARY_URL not set, avatar uploads are disabled")
		return Unconfigured{}, nil
	}
	return NewCloudinary(cfg.CloudinaryURL, breaker.Settings{
		Name:        BreakerName,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, cfg.Log)
}

type Cloudinary struct {
	cld *cloudinary.Cloudinary
	cb  *gobreaker.CircuitBreaker[*Object]
	log *logger.Logger
}

func NewCloudinary(url string, settings breaker.Settings, log *logger.Logger) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise cloudinary: %w", err)
	}
	return &Cloudinary{
		cld: cld,
		cb:  breaker.New[*Object](settings, log),
		log: log,
	}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, r io.Reader, folder, publicID string) (*Object, error) {
	return c.cb.Execute(func() (*Object, error) {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()

		result, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
			Folder:       folder,
			PublicID:     publicID,
			Overwrite:    api.Bool(true),
			ResourceType: "image",
		})
		if err != nil {
			return nil, fmt.Errorf("cloudinary upload: %w", err)
		}
		if result.Error.Message != "" {
			return nil, fmt.Errorf("cloudinary upload: %s", result.Error.Message)
		}

		c.log.Info("Object uploaded", "public_id", result.PublicID)
		return &Object{URL: result.SecureURL, PublicID: result.PublicID}, nil
	})
}

type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, io.Reader, string, string) (*Object, error) {
	return nil, ErrNotConfigured
}
