package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-match-go/internal/constants"
	applogger "resume-match-go/internal/logger"
	"resume-match-go/internal/parser"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ingestor 简历摄取器
// 写路径: 查重 -> 身份提取 -> 分块 -> 批量向量化 -> 单事务落库。
// 任一embedding调用失败则整体失败，不留下缺块的半成品文档。
type Ingestor struct {
	store        DocumentStore
	embedder     TextEmbedder
	dedup        DedupCache  // 可为nil
	archive      TextArchive // 可为nil
	chunkSize    int
	chunkOverlap int
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// IngestorOption 摄取器配置选项
type IngestorOption func(*Ingestor)

// WithResumeChunking 设置简历分块参数
func WithResumeChunking(size, overlap int) IngestorOption {
	return func(i *Ingestor) {
		i.chunkSize = size
		i.chunkOverlap = overlap
	}
}

// WithDedupCache 启用去重快速路径
func WithDedupCache(c DedupCache) IngestorOption {
	return func(i *Ingestor) {
		i.dedup = c
	}
}

// WithTextArchive 启用原文归档
func WithTextArchive(a TextArchive) IngestorOption {
	return func(i *Ingestor) {
		i.archive = a
	}
}

// NewIngestor 创建摄取器，分块参数非法时构造失败
func NewIngestor(store DocumentStore, embedder TextEmbedder, opts ...IngestorOption) (*Ingestor, error) {
	ing := &Ingestor{
		store:        store,
		embedder:     embedder,
		chunkSize:    constants.DefaultResumeChunkSize,
		chunkOverlap: constants.DefaultResumeChunkOverlap,
		logger:       applogger.Logger.With().Str("component", "ingestor").Logger(),
		tracer:       otel.Tracer("resume-match-go/processor/ingestor"),
	}
	for _, opt := range opts {
		opt(ing)
	}

	if err := parser.ValidateChunkConfig(ing.chunkSize, ing.chunkOverlap); err != nil {
		return nil, NewProcessError("new_ingestor", ErrConfiguration, err.Error())
	}
	return ing, nil
}

// Ingest 摄取一份简历，返回落库后的文档
// 重复上传在任何embedding调用发生前被拒绝。空白文本的文档允许创建，
// 但没有分块，之后不会作为匹配来源出现。
func (ing *Ingestor) Ingest(ctx context.Context, filename, rawText, userID, candidateID string) (*models.ResumeDocument, error) {
	ctx, span := ing.tracer.Start(ctx, "ingestor.Ingest",
		trace.WithAttributes(attribute.String("resume.filename", filename)))
	defer span.End()

	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, NewProcessError("ingest", ErrInvalidInput, "filename不能为空")
	}
	if userID == "" {
		return nil, NewProcessError("ingest", ErrInvalidInput, "userId不能为空")
	}

	// 快速路径查重，缓存不可用时直接落到数据库检查
	if ing.dedup != nil {
		seen, err := ing.dedup.IsResumeSeen(ctx, userID, filename, candidateID)
		if err != nil {
			ing.logger.Warn().Err(err).Msg("去重缓存查询失败，回退数据库检查")
		} else if seen {
			return nil, NewProcessError("ingest", ErrDuplicateResume,
				fmt.Sprintf("文件 %s 已在该作用域内摄取过", filename))
		}
	}

	exists, err := ing.store.ResumeExists(ctx, filename, candidateID, userID)
	if err != nil {
		return nil, NewProcessError("ingest", err, "存在性检查失败")
	}
	if exists {
		return nil, NewProcessError("ingest", ErrDuplicateResume,
			fmt.Sprintf("文件 %s 已在该作用域内摄取过", filename))
	}

	// 身份提取是尽力而为的，失败不阻断摄取
	name, email := parser.ExtractIdentity(rawText)

	chunkTexts, err := parser.ChunkText(rawText, ing.chunkSize, ing.chunkOverlap)
	if err != nil {
		return nil, NewProcessError("ingest", ErrConfiguration, err.Error())
	}

	resumeID := uuid.NewString()
	doc := &models.ResumeDocument{
		ID:          resumeID,
		Filename:    filename,
		CandidateID: candidateID,
		UserID:      userID,
		Name:        name,
		Email:       email,
		UploadedAt:  time.Now(),
	}

	var chunkRows []models.ResumeChunk
	if len(chunkTexts) > 0 {
		vectors, err := ing.embedder.EmbedStrings(ctx, chunkTexts)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
			return nil, NewProcessError("ingest", ErrProvider, err.Error()).WithResume(resumeID)
		}
		if len(vectors) != len(chunkTexts) {
			return nil, NewProcessError("ingest", ErrProvider,
				fmt.Sprintf("向量数量不符: %d个分块得到%d个向量", len(chunkTexts), len(vectors))).WithResume(resumeID)
		}

		chunkRows = make([]models.ResumeChunk, 0, len(chunkTexts))
		dims := ing.embedder.GetDimensions()
		for i, text := range chunkTexts {
			if dims > 0 && len(vectors[i]) != dims {
				return nil, NewProcessError("ingest", ErrProvider,
					fmt.Sprintf("分块 %d 的向量维度不符: 期望%d实际%d", i, dims, len(vectors[i]))).WithResume(resumeID)
			}
			embJSON, err := json.Marshal(vectors[i])
			if err != nil {
				return nil, NewProcessError("ingest", err, "序列化向量失败").WithResume(resumeID)
			}
			chunkRows = append(chunkRows, models.ResumeChunk{
				ResumeID:  resumeID,
				Seq:       i,
				Text:      text,
				Embedding: datatypes.JSON(embJSON),
			})
		}
	} else {
		ing.logger.Info().Str("filename", filename).Msg("简历文本为空，文档无分块，不参与匹配")
	}

	// 原文归档是尽力而为的，失败只降级不中断
	if ing.archive != nil && strings.TrimSpace(rawText) != "" {
		objectName, err := ing.archive.UploadResumeText(ctx, resumeID, rawText)
		if err != nil {
			ing.logger.Warn().Err(err).Str("resume_id", resumeID).Msg("归档简历原文失败")
		} else {
			doc.RawTextObject = objectName
		}
	}

	event, err := ing.buildIngestedEvent(doc, len(chunkRows))
	if err != nil {
		return nil, NewProcessError("ingest", err, "构建摄取事件失败").WithResume(resumeID)
	}

	if err := ing.store.CreateResumeDocument(ctx, doc, chunkRows, event); err != nil {
		// 唯一索引是权威约束，并发上传在这里兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewProcessError("ingest", ErrDuplicateResume,
				fmt.Sprintf("文件 %s 已在该作用域内摄取过", filename))
		}
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, NewProcessError("ingest", err, "写入简历文档失败").WithResume(resumeID)
	}

	if ing.dedup != nil {
		if err := ing.dedup.MarkResumeSeen(ctx, userID, filename, candidateID); err != nil {
			ing.logger.Warn().Err(err).Msg("写入去重缓存失败")
		}
	}

	ing.logger.Info().
		Str("resume_id", resumeID).
		Str("filename", filename).
		Int("chunks", len(chunkRows)).
		Msg("简历摄取完成")
	span.SetAttributes(
		attribute.Int("resume.chunk_count", len(chunkRows)),
		attribute.String("resume.email", tracing.MaskPII(email)),
	)

	doc.Chunks = chunkRows
	return doc, nil
}

func (ing *Ingestor) buildIngestedEvent(doc *models.ResumeDocument, chunkCount int) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(types.ResumeIngestedEvent{
		ResumeID:    doc.ID,
		UserID:      doc.UserID,
		CandidateID: doc.CandidateID,
		Filename:    doc.Filename,
		ChunkCount:  chunkCount,
		UploadedAt:  doc.UploadedAt,
	})
	if err != nil {
		return nil, err
	}

	return &models.OutboxMessage{
		AggregateID:      doc.ID,
		EventType:        constants.ResumeIngestedRoutingKey,
		Payload:          string(payload),
		TargetExchange:   constants.ResumeEventsExchange,
		TargetRoutingKey: constants.ResumeIngestedRoutingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}

// DeleteByCandidate 删除候选人名下全部简历，连带清理去重标记与归档原文
// 没有可删的返回0，不算错误。去重标记必须失效，否则同一文件之后无法
// 重新摄取。缓存与归档清理是尽力而为的，失败不回滚数据库删除。
func (ing *Ingestor) DeleteByCandidate(ctx context.Context, candidateID string) (int64, error) {
	if candidateID == "" {
		return 0, NewProcessError("delete_by_candidate", ErrInvalidInput, "candidateId不能为空")
	}

	var refs []models.ResumeDocument
	if ing.dedup != nil || ing.archive != nil {
		docs, err := ing.store.ListResumeRefsByCandidate(ctx, candidateID)
		if err != nil {
			ing.logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("查询候选人简历标识失败，跳过缓存与归档清理")
		} else {
			refs = docs
		}
	}

	count, err := ing.store.DeleteResumesByCandidate(ctx, candidateID)
	if err != nil {
		return 0, NewProcessError("delete_by_candidate", err, "删除失败")
	}

	for _, ref := range refs {
		if ing.dedup != nil {
			if err := ing.dedup.UnmarkResumeSeen(ctx, ref.UserID, ref.Filename, ref.CandidateID); err != nil {
				ing.logger.Warn().Err(err).Str("filename", ref.Filename).Msg("清除去重标记失败")
			}
		}
		if ing.archive != nil && ref.RawTextObject != "" {
			if err := ing.archive.DeleteResumeText(ctx, ref.RawTextObject); err != nil {
				ing.logger.Warn().Err(err).Str("object", ref.RawTextObject).Msg("删除归档原文失败")
			}
		}
	}

	ing.logger.Info().Str("candidate_id", candidateID).Int64("deleted", count).Msg("候选人简历已删除")
	return count, nil
}

// GetResumeText 按存储顺序用换行拼接分块，重建简历文本
// 分块重叠使重建结果在边界处含重复片段，可用于再次喂给模型，
// 不保证与原文逐字节一致
func (ing *Ingestor) GetResumeText(ctx context.Context, resumeID string) (text, filename string, err error) {
	if strings.TrimSpace(resumeID) == "" {
		return "", "", NewProcessError("get_resume_text", ErrInvalidInput, "resumeId不能为空")
	}

	doc, err := ing.store.GetResumeDocument(ctx, resumeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", NewProcessError("get_resume_text", ErrNotFound,
				fmt.Sprintf("简历 %s 不存在", resumeID))
		}
		return "", "", NewProcessError("get_resume_text", err, "读取简历失败")
	}

	texts := make([]string, 0, len(doc.Chunks))
	for _, c := range doc.Chunks {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n"), doc.Filename, nil
}
