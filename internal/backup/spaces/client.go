// Package spaces implements backup.Source against an S3-compatible object
// store such as DigitalOcean Spaces.
package spaces

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/statusgen/statusgen/internal/backup"
	"github.com/statusgen/statusgen/internal/provider"
)

const (
	// ProviderName identifies this backup source.
	ProviderName = "spaces"

	// DefaultRegion is sent to the store; Spaces requires one but ignores it.
	DefaultRegion = "us-east-1"
)

// ClientConfig holds configuration for the object-storage client.
type ClientConfig struct {
	// Endpoint is the storage host, e.g. nyc3.digitaloceanspaces.com (required).
	// A scheme prefix is accepted and stripped.
	Endpoint string

	// AccessKey and SecretKey are the storage credentials (required).
	AccessKey string
	SecretKey string

	// Bucket is the bucket holding the backups (required).
	Bucket string

	// Region is the signing region (optional, defaults to DefaultRegion).
	Region string

	// Insecure disables TLS; only meant for local S3 emulators.
	Insecure bool

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client lists and inspects backup objects in one bucket.
type Client struct {
	s3     *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewClient creates a new object-storage client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	endpoint, secure := splitEndpoint(cfg.Endpoint)
	if cfg.Insecure {
		secure = false
	}

	s3, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	cfg.Logger.Info().Str("bucket", cfg.Bucket).Str("endpoint", endpoint).Msg("initialized backup source")

	return &Client{
		s3:     s3,
		bucket: cfg.Bucket,
		logger: cfg.Logger,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// ListObjects lists every object under prefix, recursively.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]backup.Object, error) {
	var objects []backup.Object

	for info := range c.s3.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, c.transportError("list objects", info.Err)
		}
		objects = append(objects, toObject(info))
	}

	c.logger.Debug().
		Str("bucket", c.bucket).
		Str("prefix", prefix).
		Int("count", len(objects)).
		Msg("listed objects")
	return objects, nil
}

// StatObject fetches metadata of the object at key.
func (c *Client) StatObject(ctx context.Context, key string) (backup.Object, error) {
	info, err := c.s3.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return backup.Object{}, c.transportError("stat object", err)
	}
	return toObject(info), nil
}

func (c *Client) transportError(op string, err error) error {
	return &provider.TransportError{Service: ProviderName, Op: op, Err: err}
}

func toObject(info minio.ObjectInfo) backup.Object {
	return backup.Object{
		Key:          info.Key,
		SizeBytes:    info.Size,
		LastModified: info.LastModified.UTC(),
		Checksum:     strings.Trim(info.ETag, `"`),
	}
}

// splitEndpoint strips a URL scheme from endpoint and reports whether TLS
// should be used. A bare host defaults to TLS.
func splitEndpoint(endpoint string) (host string, secure bool) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), false
	default:
		return endpoint, true
	}
}
