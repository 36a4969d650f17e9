// Package r2client talks to Cloudflare R2 through the S3 API. Menu
// snapshots are stored there zstd-compressed; conditional writes back the
// publish lock used by menuctl.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("r2client: object not found")

// Config holds R2 client configuration.
type Config struct {
	Endpoint    string // R2 endpoint URL (e.g., https://account-id.r2.cloudflarestorage.com)
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// Client provides R2 object storage operations.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New creates a new R2 client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("r2client: all config fields are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for R2
	})

	return &Client{
		s3:     s3Client,
		bucket: cfg.BucketName,
	}, nil
}

// Upload stores an object and returns its ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, etag, err := c.put(ctx, key, body, contentType, nil)
	return etag, err
}

// PutObjectIfNotExists creates an object only while the key is free
// (If-None-Match: *). It reports false when the object already exists.
func (c *Client) PutObjectIfNotExists(ctx context.Context, key string, body io.Reader, contentType string) (bool, string, error) {
	return c.put(ctx, key, body, contentType, func(in *s3.PutObjectInput) {
		in.IfNoneMatch = aws.String("*")
	})
}

// PutObjectIfMatch replaces an object only while its ETag still equals etag.
// It reports false on mismatch.
func (c *Client) PutObjectIfMatch(ctx context.Context, key string, body io.Reader, etag, contentType string) (bool, string, error) {
	return c.put(ctx, key, body, contentType, func(in *s3.PutObjectInput) {
		in.IfMatch = aws.String(`"` + etag + `"`)
	})
}

// put uploads body. A failed precondition is reported as (false, "", nil).
func (c *Client) put(ctx context.Context, key string, body io.Reader, contentType string, cond func(*s3.PutObjectInput)) (bool, string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if cond != nil {
		cond(in)
	}

	out, err := c.s3.PutObject(ctx, in)
	switch {
	case err == nil:
		return true, etagOf(out.ETag), nil
	case cond != nil && isPreconditionFailed(err):
		return false, "", nil
	default:
		return false, "", fmt.Errorf("r2client: put %q: %w", key, err)
	}
}

// Download returns the object body and ETag. Caller must close the body.
func (c *Client) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, "", c.wrap("download", key, err)
	}
	return out.Body, etagOf(out.ETag), nil
}

// HeadObject returns the ETag without downloading the body, or ErrNotFound.
func (c *Client) HeadObject(ctx context.Context, key string) (string, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil {
		return "", c.wrap("head", key, err)
	}
	return etagOf(out.ETag), nil
}

// DeleteObject deletes an object. Deleting a missing key succeeds.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	if _, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("r2client: delete %q: %w", key, err)
	}
	return nil
}

func (c *Client) wrap(op, key string, err error) error {
	if isNotFound(err) {
		return ErrNotFound
	}
	return fmt.Errorf("r2client: %s %q: %w", op, key, err)
}

// etagOf strips the quotes S3 puts around ETags.
func etagOf(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

// httpStatus returns the HTTP status carried by an SDK error, or 0.
func httpStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isPreconditionFailed(err error) bool {
	return errorCode(err) == "PreconditionFailed" || httpStatus(err) == http.StatusPreconditionFailed
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	switch errorCode(err) {
	case "NoSuchKey", "NotFound", "404":
		return true
	}
	return httpStatus(err) == http.StatusNotFound
}
