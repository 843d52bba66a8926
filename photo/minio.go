package photo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/mbolis/pmdraft/model"
)

type minioBackend struct {
	client *minio.Client
	bucket string
}

// NewMinioBackend stores each photo as the object <draftID>/<itemKey>/<uuid>;
// the object name doubles as the photo id.
func NewMinioBackend(client *minio.Client, bucket string) Backend {
	return &minioBackend{client: client, bucket: bucket}
}

// EnsureBucket creates the photo bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", bucket, err)
	}
	return nil
}

func (b *minioBackend) Put(ctx context.Context, p model.Photo) (string, error) {
	name := objectName(p.DraftID, p.ItemKey, uuid.NewString())
	_, err := b.client.PutObject(ctx, b.bucket, name, bytes.NewReader(p.Data), int64(len(p.Data)), minio.PutObjectOptions{
		ContentType: p.ContentType,
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

func (b *minioBackend) Get(ctx context.Context, id string) (model.Photo, error) {
	draftID, itemKey, ok := splitObjectName(id)
	if !ok {
		return model.Photo{}, ErrNotFound
	}

	obj, err := b.client.GetObject(ctx, b.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return model.Photo{}, err
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return model.Photo{}, ErrNotFound
		}
		return model.Photo{}, err
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return model.Photo{}, err
	}

	return model.Photo{
		ID:          id,
		DraftID:     draftID,
		ItemKey:     itemKey,
		ContentType: info.ContentType,
		Data:        data,
		CreatedAt:   info.LastModified,
	}, nil
}

func (b *minioBackend) Exists(ctx context.Context, id string) (bool, error) {
	if _, _, ok := splitObjectName(id); !ok {
		return false, nil
	}
	_, err := b.client.StatObject(ctx, b.bucket, id, minio.StatObjectOptions{})
	if isNoSuchKey(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *minioBackend) Delete(ctx context.Context, id string) error {
	err := b.client.RemoveObject(ctx, b.bucket, id, minio.RemoveObjectOptions{})
	if isNoSuchKey(err) {
		return nil
	}
	return err
}

func (b *minioBackend) DeleteDraft(ctx context.Context, draftID string) error {
	objects := b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    draftID + "/",
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return obj.Err
		}
		if err := b.Delete(ctx, obj.Key); err != nil {
			return fmt.Errorf("remove %s: %w", obj.Key, err)
		}
	}
	return nil
}

func objectName(draftID, itemKey, id string) string {
	return draftID + "/" + itemKey + "/" + id
}

func splitObjectName(name string) (draftID, itemKey string, ok bool) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
