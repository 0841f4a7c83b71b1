package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const jsonContentType = "application/json"

// S3Sink uploads backups to an S3 compatible bucket.
type S3Sink struct {
	client *minio.Client
	bucket string
}

// NewS3Sink connects and creates the bucket when it is missing.
func NewS3Sink(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*S3Sink, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}
	return &S3Sink{client: client, bucket: bucket}, nil
}

func (s *S3Sink) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: jsonContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	return "s3://" + s.bucket + "/" + name, nil
}

func (s *S3Sink) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, name)
		}
		return nil, err
	}
	return data, nil
}
