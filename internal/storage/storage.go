package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dyann2003/cbgift/internal/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// FileStore 设计稿/生产文件/感谢卡存储
// 核心逻辑只持有返回的 URL，不解释文件内容
type FileStore struct {
	client *minio.Client
	bucket string
}

func NewFileStore(cfg config.MinIOConfig) (*FileStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("连接对象存储失败: %w", err)
	}
	return &FileStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket 确保桶存在
func (s *FileStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

// Upload 上传文件并返回预签名访问 URL
func (s *FileStore) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	objectName := fmt.Sprintf("%s/%s%s",
		time.Now().Format("2006/01"),
		uuid.New().String()[:16],
		filepath.Ext(filename))

	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传文件失败: %w", err)
	}

	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, 7*24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("生成访问链接失败: %w", err)
	}
	return url.String(), nil
}
