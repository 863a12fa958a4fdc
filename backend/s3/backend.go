package s3

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/flatfs/backend"
)

// S3Backend stores objects in an S3 compatible bucket.
//
// S3 has no partial writes, so handles buffer the whole object in memory,
// and Flush and Close upload it again with PutObject.
type S3Backend struct {
	mu sync.RWMutex

	client *minio.Client
	config *S3BackendConfig
	locks  *backend.LockTable
}

// S3BackendConfig contains configuration options for the S3 backend
type S3BackendConfig struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Prefix for all object names inside the bucket (optional)
	Prefix string
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil || config.Endpoint == "" || config.Bucket == "" {
		return nil, fmt.Errorf("s3 backend requires an endpoint and a bucket")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: client,
		config: config,
		locks:  backend.NewLockTable(),
	}, nil
}

// Name returns the identifier name defined for this backend.
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when mounting this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.client.BucketExists(ctx, sb.config.Bucket)
	if err != nil {
		return translate("open", sb.config.Bucket, err)
	}

	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", sb.config.Bucket)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

func (sb *S3Backend) objectName(key string) string {
	return sb.config.Prefix + key
}

func (sb *S3Backend) keyName(object string) string {
	return strings.TrimPrefix(object, sb.config.Prefix)
}

func translate(op, key string, err error) error {
	if err == nil {
		return nil
	}

	response := minio.ToErrorResponse(err)
	switch response.Code {
	case "NoSuchKey", "NotFound":
		return backend.ErrNotFound
	case "":
		return backend.NewError(op, key, "s3", err)
	default:
		return backend.NewError(op, key, response.Code, err)
	}
}
