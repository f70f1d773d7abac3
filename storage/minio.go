package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Minio struct {
	C      *minio.Client
	Bucket string
}

// NewMinio connects to the server under minio.* and creates the bucket when
// it doesn't exist yet
func NewMinio(ctx context.Context) (*Minio, error) {
	client, err := minio.New(viper.GetString("minio.endpoint"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_key"), viper.GetString("minio.secret_key"), ""),
		Secure: viper.GetBool("minio.use_ssl"),
		Region: viper.GetString("minio.region"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client, %w", err)
	}

	bucket := viper.GetString("minio.bucket")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{
			Region: viper.GetString("minio.region"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket, %w", err)
		}

		zap.L().Info("Created MinIO bucket", zap.String("bucket", bucket))
	}

	return &Minio{C: client, Bucket: bucket}, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (m *Minio) Location(key string) string {
	return "minio://" + m.Bucket + "/" + key
}

func (m *Minio) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := validKey(key); err != nil {
		return err
	}

	_, err := m.C.PutObject(ctx, m.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to MinIO, %w", err)
	}

	return nil
}

func (m *Minio) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject is lazy, stat first so a missing key surfaces here
	if _, err := m.Stat(ctx, key); err != nil {
		return nil, err
	}

	obj, err := m.C.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object from MinIO, %w", err)
	}

	return obj, nil
}

func (m *Minio) Delete(ctx context.Context, key string) error {
	err := m.C.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("failed to delete object from MinIO, %w", err)
	}

	return nil
}

func (m *Minio) Stat(ctx context.Context, key string) (Object, error) {
	info, err := m.C.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Object{}, fmt.Errorf("%w: %s", ErrNotExist, key)
		}

		return Object{}, fmt.Errorf("failed to stat object, %w", err)
	}

	return Object{Key: key, Size: info.Size, ModTime: info.LastModified}, nil
}

func (m *Minio) List(ctx context.Context) ([]Object, error) {
	var out []Object

	for info := range m.C.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("failed to list bucket, %w", info.Err)
		}

		out = append(out, Object{Key: info.Key, Size: info.Size, ModTime: info.LastModified})
	}

	return out, nil
}
