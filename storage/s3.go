package storage

import (
	a "bitwise74/trackbook/aws"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Files above this size are sent as multipart uploads
const minMultipartSize = 12 << 20

type S3 struct {
	S3 *a.S3Client
}

func NewS3(ctx context.Context) (*S3, error) {
	c, err := a.NewS3(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	return &S3{S3: c}, nil
}

func (s *S3) Location(key string) string {
	return "s3://" + *s.S3.Bucket + "/" + key
}

func (s *S3) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if err := validKey(key); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:        s.S3.Bucket,
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	}

	var err error
	if size > minMultipartSize {
		zap.L().Debug("Using multipart upload", zap.String("key", key), zap.Int64("size", size))

		uploader := manager.NewUploader(s.S3.C, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		})
		_, err = uploader.Upload(ctx, input)
	} else {
		_, err = s.S3.C.PutObject(ctx, input)
	}
	if err != nil {
		return fmt.Errorf("failed to upload object to S3, %w", err)
	}

	return nil
}

func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.S3.C.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.S3.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if a.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}

		return nil, fmt.Errorf("failed to fetch object from S3, %w", err)
	}

	return out.Body, nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.S3.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.S3.Bucket,
		Key:    aws.String(key),
	})
	if err != nil && !a.IsNotFound(err) {
		return fmt.Errorf("failed to delete object from S3, %w", err)
	}

	return nil
}

func (s *S3) Stat(ctx context.Context, key string) (Object, error) {
	out, err := s.S3.C.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: s.S3.Bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		if a.IsNotFound(err) {
			return Object{}, fmt.Errorf("%w: %s", ErrNotExist, key)
		}

		return Object{}, fmt.Errorf("failed to stat object, %w", err)
	}

	obj := Object{Key: key, Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		obj.ModTime = *out.LastModified
	}

	return obj, nil
}

func (s *S3) List(ctx context.Context) ([]Object, error) {
	var out []Object

	p := s3.NewListObjectsV2Paginator(s.S3.C, &s3.ListObjectsV2Input{
		Bucket: s.S3.Bucket,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket, %w", err)
		}

		for _, o := range page.Contents {
			obj := Object{Key: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)}
			if o.LastModified != nil {
				obj.ModTime = *o.LastModified
			}
			out = append(out, obj)
		}
	}

	return out, nil
}
