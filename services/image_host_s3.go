package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/inkwell/errs"
	"github.com/rpupo63/inkwell/models"
)

// S3UploadAPI is the part of the S3 client the image host needs
type S3UploadAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3ImageHost puts uploads into a bucket served publicly, directly or behind a CDN
type S3ImageHost struct {
	cfg    models.ImageConfig
	client S3UploadAPI
	logger zerolog.Logger
}

func NewS3ImageHost(cfg models.ImageConfig, client S3UploadAPI) *S3ImageHost {
	return &S3ImageHost{
		cfg:    cfg.Normalize(),
		client: client,
		logger: log.With().Str("serviceName", "s3ImageHost").Logger(),
	}
}

func (h *S3ImageHost) IsConfigured() bool {
	return h.cfg.Bucket != "" && h.client != nil
}

// PublicURL is where an object key can be fetched from
func (h *S3ImageHost) PublicURL(key string) string {
	if h.cfg.PublicBaseURL != "" {
		return h.cfg.PublicBaseURL + "/" + key
	}
	if h.cfg.Region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", h.cfg.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.cfg.Bucket, h.cfg.Region, key)
}

func (h *S3ImageHost) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	if !h.IsConfigured() {
		return "", errNotConfigured()
	}

	key := path.Join(ImagesDir, fileName)
	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", s3Error(err)
	}

	h.logger.Info().Str("bucket", h.cfg.Bucket).Str("key", key).Msg("Uploaded image to S3")
	return h.PublicURL(key), nil
}

func (h *S3ImageHost) TestConnection(ctx context.Context) error {
	if !h.IsConfigured() {
		return errNotConfigured()
	}
	_, err := h.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(h.cfg.Bucket)})
	if err != nil {
		return s3Error(err)
	}
	return nil
}

func s3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return errs.NewInvalidAPIKeyError("S3")
		}
		status := http.StatusBadGateway
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) {
			status = respErr.HTTPStatusCode()
		}
		return errs.NewUpstreamError("S3", status, apiErr.ErrorMessage())
	}
	return errs.NewServiceUnreachableError("S3", err)
}
