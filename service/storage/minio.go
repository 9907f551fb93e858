package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/khaledhikmat/dfd-go/service/config"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioService struct {
	client *miniogo.Client
	bucket string
}

// NewMinio connects to the object store and makes sure the archive bucket exists.
func NewMinio(ctx context.Context, cfgsvc config.IService) (IService, error) {
	params := cfgsvc.GetMinioParameters()

	client, err := miniogo.New(params.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(params.AccessKey, params.SecretKey, ""),
		Secure: params.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	svc := &minioService{
		client: client,
		bucket: params.Bucket,
	}

	if err := svc.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return svc, nil
}

func (svc *minioService) ensureBucket(ctx context.Context) error {
	exists, err := svc.client.BucketExists(ctx, svc.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", svc.bucket, err)
	}
	if !exists {
		if err := svc.client.MakeBucket(ctx, svc.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", svc.bucket, err)
		}
	}
	return nil
}

func (svc *minioService) StoreFile(ctx context.Context, fileName, key string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	objectKey := key + ext

	_, err := svc.client.FPutObject(ctx, svc.bucket, objectKey, fileName, miniogo.PutObjectOptions{
		ContentType: contentType(ext),
	})
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", svc.bucket, objectKey), nil
}

func contentType(ext string) string {
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".flv":
		return "video/x-flv"
	}
	return "application/octet-stream"
}
