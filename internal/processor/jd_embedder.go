package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"resume-match-go/internal/constants"
	applogger "resume-match-go/internal/logger"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// JDEmbedder 职位描述向量化器
// 读路径: 分类 -> 每类别分块 -> 批量向量化，结果可按JD全文MD5缓存。
type JDEmbedder struct {
	embedder     TextEmbedder
	cache        JDVectorCache // 可为nil
	model        string
	chunkSize    int
	chunkOverlap int
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// JDEmbedderOption JD向量化器配置选项
type JDEmbedderOption func(*JDEmbedder)

// WithJDChunking 设置JD分块参数
func WithJDChunking(size, overlap int) JDEmbedderOption {
	return func(j *JDEmbedder) {
		j.chunkSize = size
		j.chunkOverlap = overlap
	}
}

// WithJDVectorCache 启用JD向量缓存
func WithJDVectorCache(c JDVectorCache) JDEmbedderOption {
	return func(j *JDEmbedder) {
		j.cache = c
	}
}

// NewJDEmbedder 创建JD向量化器，model用于缓存失效判断
func NewJDEmbedder(embedder TextEmbedder, model string, opts ...JDEmbedderOption) (*JDEmbedder, error) {
	j := &JDEmbedder{
		embedder:     embedder,
		model:        model,
		chunkSize:    constants.DefaultJDChunkSize,
		chunkOverlap: constants.DefaultJDChunkOverlap,
		logger:       applogger.Logger.With().Str("component", "jd_embedder").Logger(),
		tracer:       otel.Tracer("resume-match-go/processor/jd_embedder"),
	}
	for _, opt := range opts {
		opt(j)
	}

	if err := parser.ValidateChunkConfig(j.chunkSize, j.chunkOverlap); err != nil {
		return nil, NewProcessError("new_jd_embedder", ErrConfiguration, err.Error())
	}
	return j, nil
}

// jdCacheKey JD全文的MD5十六进制串
func jdCacheKey(jdText string) string {
	sum := md5.Sum([]byte(jdText))
	return hex.EncodeToString(sum[:])
}

// EmbedCategories 把JD文本分类并逐类别向量化
// 空类别得到空分块列表，对评分没有贡献。任一embedding调用失败则
// 整个请求失败，不返回部分向量。
func (j *JDEmbedder) EmbedCategories(ctx context.Context, jdText string) (map[string][]types.Chunk, error) {
	ctx, span := j.tracer.Start(ctx, "jd_embedder.EmbedCategories")
	defer span.End()

	if strings.TrimSpace(jdText) == "" {
		return nil, NewProcessError("embed_categories", ErrInvalidInput, "职位描述不能为空")
	}

	cacheKey := jdCacheKey(jdText)
	if j.cache != nil {
		cached, ok, err := j.cache.GetJDCategoryVectors(ctx, cacheKey, j.model)
		if err != nil {
			j.logger.Warn().Err(err).Msg("读取JD向量缓存失败，重新计算")
		} else if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	categories := parser.CategorizeJD(jdText)

	result := make(map[string][]types.Chunk, len(types.JDCategoryNames))
	totalChunks := 0
	for _, name := range types.JDCategoryNames {
		chunkTexts, err := parser.ChunkText(categories[name], j.chunkSize, j.chunkOverlap)
		if err != nil {
			return nil, NewProcessError("embed_categories", ErrConfiguration, err.Error())
		}
		if len(chunkTexts) == 0 {
			result[name] = []types.Chunk{}
			continue
		}

		vectors, err := j.embedder.EmbedStrings(ctx, chunkTexts)
		if err != nil {
			return nil, NewProcessError("embed_categories", ErrProvider, err.Error())
		}

		chunks := make([]types.Chunk, 0, len(chunkTexts))
		for i, text := range chunkTexts {
			chunks = append(chunks, types.Chunk{Text: text, Embedding: vectors[i]})
		}
		result[name] = chunks
		totalChunks += len(chunks)
	}

	if j.cache != nil {
		if err := j.cache.SetJDCategoryVectors(ctx, cacheKey, j.model, result); err != nil {
			j.logger.Warn().Err(err).Msg("写入JD向量缓存失败")
		}
	}

	span.SetAttributes(
		attribute.Bool("cache.hit", false),
		attribute.Int("jd.chunk_count", totalChunks),
	)
	return result, nil
}
