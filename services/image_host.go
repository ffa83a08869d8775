package services

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

const (
	// ImagesDir is the folder uploads land in, in the repository or bucket
	ImagesDir = "uploads"
	// MaxImageSize is the largest image accepted for upload
	MaxImageSize = 10 << 20
)

// ImageHost stores images somewhere public and hands back their URL
type ImageHost interface {
	IsConfigured() bool
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
	TestConnection(ctx context.Context) error
}

// NewImageHost returns the host for the configured provider
func NewImageHost(ctx context.Context, cfg models.ImageConfig) (ImageHost, error) {
	cfg = cfg.Normalize()
	switch cfg.Provider {
	case models.ImageProviderGitHub:
		return NewGitHubImageHost(cfg), nil
	case models.ImageProviderS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, errs.NewConfigError("AWS", err)
		}
		if cfg.Region == "" {
			cfg.Region = awsCfg.Region
		}
		return NewS3ImageHost(cfg, s3.NewFromConfig(awsCfg)), nil
	default:
		return nil, errs.NewInvalidFieldError("provider", fmt.Sprintf("unknown image provider %q", cfg.Provider))
	}
}

// ImageFileName names an upload: a fresh uuid keeping the original's
// lowercased extension.
func ImageFileName(original string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(original), "."))
	if ext == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "." + ext
}

// DetectImageType sniffs the content type of data and rejects anything that
// is not an image.
func DetectImageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errs.NewMissingRequiredFieldError("file")
	}
	if len(data) > MaxImageSize {
		return "", errs.NewMaxBodySizeExceededError(MaxImageSize)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errs.NewInvalidFieldError("file", "please select an image file")
	}
	return contentType, nil
}

func errNotConfigured() error {
	return errs.NewConfigMissingError("image hosting")
}
