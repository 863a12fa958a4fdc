package s3

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

// exists must be called while holding the backend lock.
func (sb *S3Backend) exists(ctx context.Context, key string) (bool, error) {
	_, err := sb.client.StatObject(ctx, sb.config.Bucket, sb.objectName(key), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	err = translate("stat", key, err)
	if errors.Is(err, backend.ErrNotFound) {
		return false, nil
	}

	return false, err
}

// put uploads content as the whole object stored under key.
func (sb *S3Backend) put(ctx context.Context, key string, content []byte) error {
	contentType := data.ContentTypeApplicationStream
	if path, err := data.DecodeKey(key); err == nil {
		contentType = data.GetMIMEType(path)
	}

	_, err := sb.client.PutObject(ctx, sb.config.Bucket, sb.objectName(key),
		bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
			ContentType: string(contentType),
		})
	return translate("put", key, err)
}

func (sb *S3Backend) CreateObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		return backend.ErrExists
	}

	return sb.put(ctx, key, []byte{})
}

func (sb *S3Backend) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	object, err := sb.client.GetObject(ctx, sb.config.Bucket, sb.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, translate("open", key, err)
	}
	defer object.Close()

	// GetObject is lazy, missing objects are only reported on read
	content, err := io.ReadAll(object)
	if err != nil {
		return nil, translate("open", key, err)
	}

	sb.locks.Lock(key)
	return &s3Handle{
		backend: sb,
		id:      data.NewID(),
		key:     key,
		content: content,
	}, nil
}

func (sb *S3Backend) DeleteObject(ctx context.Context, key string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return backend.ErrNotFound
	}
	if sb.locks.Locked(key) {
		return backend.ErrLocked
	}

	err = sb.client.RemoveObject(ctx, sb.config.Bucket, sb.objectName(key), minio.RemoveObjectOptions{})
	return translate("delete", key, err)
}

// RenameObject copies the object server-side and removes the source.
func (sb *S3Backend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	exists, err := sb.exists(ctx, oldKey)
	if err != nil {
		return err
	}
	if !exists {
		return backend.ErrNotFound
	}
	if sb.locks.Locked(oldKey) {
		return backend.ErrLocked
	}
	if oldKey == newKey {
		return nil
	}

	exists, err = sb.exists(ctx, newKey)
	if err != nil {
		return err
	}
	if exists {
		return backend.ErrExists
	}

	_, err = sb.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: sb.config.Bucket, Object: sb.objectName(newKey)},
		minio.CopySrcOptions{Bucket: sb.config.Bucket, Object: sb.objectName(oldKey)})
	if err != nil {
		return translate("rename", oldKey, err)
	}

	err = sb.client.RemoveObject(ctx, sb.config.Bucket, sb.objectName(oldKey), minio.RemoveObjectOptions{})
	return translate("rename", oldKey, err)
}

func (sb *S3Backend) ListKeys(ctx context.Context) ([]string, error) {
	return sb.ListKeysWithPrefix(ctx, "")
}

func (sb *S3Backend) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	keys := make([]string, 0)
	objectsCh := sb.client.ListObjects(ctx, sb.config.Bucket, minio.ListObjectsOptions{
		Prefix:    sb.objectName(prefix),
		Recursive: true,
	})

	for obj := range objectsCh {
		if obj.Err != nil {
			return nil, translate("list", prefix, obj.Err)
		}
		keys = append(keys, sb.keyName(obj.Key))
	}

	return keys, nil
}
