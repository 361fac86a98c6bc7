package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendType represents the type of storage backend.
type BackendType string

const (
	// BackendLocal uses the local filesystem for storage.
	BackendLocal BackendType = "local"
	// BackendS3 uses AWS S3 for storage.
	BackendS3 BackendType = "s3"
)

// Config holds the configuration for the StorageManager.
type Config struct {
	Backend BackendType

	// BaseDir is the root directory for the local backend.
	BaseDir string

	S3 S3Config
}

// S3Config holds configuration for S3 storage.
type S3Config struct {
	Bucket string
	// Prefix is an optional prefix for all keys in the bucket.
	Prefix string
	Region string
	// Client overrides the SDK client built from the default credential chain.
	Client *s3.Client
}

// StorageManager resolves the configured backend into a FileProvider.
type StorageManager struct {
	backend  BackendType
	provider FileProvider
}

// New creates a new StorageManager with the given configuration.
func New(ctx context.Context, config Config) (*StorageManager, error) {
	var provider FileProvider

	switch config.Backend {
	case BackendLocal:
		if config.BaseDir == "" {
			return nil, fmt.Errorf("base directory is required for local backend")
		}
		provider = NewLocalFileProvider(config.BaseDir)

	case BackendS3:
		if config.S3.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for s3 backend")
		}
		client := config.S3.Client
		if client == nil {
			var err error
			client, err = LoadS3Client(ctx, config.S3.Region)
			if err != nil {
				return nil, err
			}
		}
		provider = NewS3FileProvider(config.S3.Bucket, config.S3.Prefix, NewAWSS3Client(client))

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Backend)
	}

	return &StorageManager{
		backend:  config.Backend,
		provider: provider,
	}, nil
}

// NewWithProvider wraps a custom FileProvider, mostly for tests.
func NewWithProvider(provider FileProvider) *StorageManager {
	return &StorageManager{provider: provider}
}

// Provider returns the FileProvider for the configured backend.
func (m *StorageManager) Provider() FileProvider {
	return m.provider
}

// Backend returns the configured backend type.
func (m *StorageManager) Backend() BackendType {
	return m.backend
}
