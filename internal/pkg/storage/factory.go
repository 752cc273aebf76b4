package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverS3 selects the AWS S3 backend.
	DriverS3 = "s3"
	// DriverMinIO selects the MinIO backend.
	DriverMinIO = "minio"
	// DriverMemory keeps objects in process memory.
	DriverMemory = "memory"
)

var (
	// ErrUnknownDriver indicates an unsupported storage driver.
	ErrUnknownDriver = errors.New("storage: unknown driver")
	// ErrBucketRequired is returned when no bucket is configured.
	ErrBucketRequired = errors.New("storage: bucket is required")
)

// FactoryOptions groups configuration for storage drivers.
type FactoryOptions struct {
	Bucket string
	S3     S3Options
	MinIO  MinIOOptions
}

// NewFromDriver constructs a bucket-bound Storage by driver name.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == DriverMemory {
		return NewMemory(), nil
	}

	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, ErrBucketRequired
	}

	switch driver {
	case DriverS3:
		return NewS3(ctx, opts.Bucket, opts.S3)
	case DriverMinIO:
		return NewMinIO(opts.Bucket, opts.MinIO)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
