package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"resume-match-go/internal/config"
	applogger "resume-match-go/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinIO 对象存储，归档简历提取出的原文
// MySQL中的分块重建文本在重叠边界处有损，原文归档保留完整版本
type MinIO struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO endpoint不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.ResumeTextBucket
	if bucket == "" {
		bucket = "resume-texts"
	}

	m := &MinIO{
		client: client,
		bucket: bucket,
		logger: applogger.Logger.With().Str("component", "minio").Logger(),
	}
	if err := m.ensureBucket(ctx, bucket, cfg.Location); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, bucket, location string) error {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 失败: %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucket, err)
	}
	m.logger.Info().Str("bucket", bucket).Msg("已创建存储桶")
	return nil
}

// UploadResumeText 归档简历原文，返回对象名
func (m *MinIO) UploadResumeText(ctx context.Context, resumeID, text string) (string, error) {
	objectName := fmt.Sprintf("resumes/%s.txt", resumeID)
	_, err := m.client.PutObject(ctx, m.bucket, objectName,
		strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return "", fmt.Errorf("上传简历原文失败 (resume=%s): %w", resumeID, err)
	}

	m.logger.Debug().Str("object", objectName).Int("bytes", len(text)).Msg("简历原文已归档")
	return objectName, nil
}

// GetResumeText 读取归档的简历原文
func (m *MinIO) GetResumeText(ctx context.Context, objectName string) (string, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("读取简历原文失败 (object=%s): %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("读取简历原文内容失败 (object=%s): %w", objectName, err)
	}
	return string(data), nil
}

// DeleteResumeText 删除归档的简历原文
func (m *MinIO) DeleteResumeText(ctx context.Context, objectName string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除简历原文失败 (object=%s): %w", objectName, err)
	}
	return nil
}
