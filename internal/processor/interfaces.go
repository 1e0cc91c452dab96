package processor

import (
	"context"
	"io"

	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

// TextEmbedder 文本向量化接口，批量方法符合 cloudwego/eino 规范
type TextEmbedder interface {
	// EmbedStrings 批量向量化，结果与输入顺序一致
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// EmbedText 单条向量化，空白文本返回一维零向量且不触发远程调用
	EmbedText(ctx context.Context, text string) ([]float64, error)

	// GetDimensions 返回向量维度
	GetDimensions() int
}

// TextExtractor 简历文件的纯文本提取接口
type TextExtractor interface {
	ExtractText(ctx context.Context, reader io.Reader, uri string) (string, error)
}

// DocumentStore 简历文档持久化接口，由 storage.MySQL 实现
type DocumentStore interface {
	ResumeExists(ctx context.Context, filename, candidateID, userID string) (bool, error)
	CreateResumeDocument(ctx context.Context, doc *models.ResumeDocument, chunks []models.ResumeChunk, event *models.OutboxMessage) error
	GetResumeDocument(ctx context.Context, resumeID string) (*models.ResumeDocument, error)
	ListResumeDocumentsByUser(ctx context.Context, userID string) ([]models.ResumeDocument, error)
	DeleteResumesByCandidate(ctx context.Context, candidateID string) (int64, error)

	// ListResumeRefsByCandidate 候选人名下简历的标识信息（不含分块），
	// 删除后的去重缓存与归档清理用
	ListResumeRefsByCandidate(ctx context.Context, candidateID string) ([]models.ResumeDocument, error)
}

// DedupCache 重复上传的快速检查，可选，由 storage.Redis 实现
// 缓存必须与存储给出同样的判重答案，删除简历后对应标记要跟着失效
type DedupCache interface {
	IsResumeSeen(ctx context.Context, userID, filename, candidateID string) (bool, error)
	MarkResumeSeen(ctx context.Context, userID, filename, candidateID string) error
	UnmarkResumeSeen(ctx context.Context, userID, filename, candidateID string) error
}

// TextArchive 简历原文归档，可选，由 storage.MinIO 实现
type TextArchive interface {
	UploadResumeText(ctx context.Context, resumeID, text string) (string, error)
	DeleteResumeText(ctx context.Context, objectName string) error
}

// JDVectorCache JD类别向量缓存，可选，由 storage.Redis 实现
type JDVectorCache interface {
	GetJDCategoryVectors(ctx context.Context, cacheKey, model string) (map[string][]types.Chunk, bool, error)
	SetJDCategoryVectors(ctx context.Context, cacheKey, model string, categories map[string][]types.Chunk) error
}
