package minio

import (
	"Chatter/internal/api/config"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// Storage 单桶对象存储
type Storage struct {
	client *minio.Client
	bucket string
	cfg    config.MinIOConfig
}

// UploadFile 上传文件并返回公共访问 URL
func (s *Storage) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return s.GetPublicURL(objectName), nil
}

// DeleteFile 删除MinIO中的文件
func (s *Storage) DeleteFile(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetPublicURL 外部访问地址, 未配置 external endpoint 时使用内部地址
func (s *Storage) GetPublicURL(objectName string) string {
	endpoint := s.cfg.ExternalEndpoint
	protocol := "https"
	if endpoint == "" {
		endpoint = s.cfg.InternalEndpoint
		if !s.cfg.InternalUseSSL {
			protocol = "http"
		}
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, endpoint, s.bucket, objectName)
}
