package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"resume-match-go/internal/constants"
	applogger "resume-match-go/internal/logger"
	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/tracing"
	"resume-match-go/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// CosineSimilarity 余弦相似度 dot(a,b) / (norm(a) * norm(b))
// 任一范数为零时返回0，避免除零。维度不一致（如空文本的一维零向量
// 与真实向量）同样返回0，不做截断比较。
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScoreResume 一份简历对全部JD类别分块做交叉比较
// 每个类别里每个JD分块对每个简历分块算一次余弦相似度，
// 相似度达到阈值才计入命中。总分是全部命中相似度的均值乘100，
// 保留两位小数，没有命中时为0。总分衡量的是命中质量的平均值，
// 不反映覆盖度，命中数悬殊的两份简历可能同分。
func ScoreResume(jdCategories map[string][]types.Chunk, resumeChunks []types.Chunk, threshold float64) (map[string][]types.ChunkMatch, float64) {
	matches := make(map[string][]types.ChunkMatch)
	var sum float64
	count := 0

	for _, name := range types.JDCategoryNames {
		for _, jc := range jdCategories[name] {
			for _, rc := range resumeChunks {
				sim := CosineSimilarity(jc.Embedding, rc.Embedding)
				if sim >= threshold {
					matches[name] = append(matches[name], types.ChunkMatch{
						JDText:     jc.Text,
						ResumeText: rc.Text,
						Similarity: sim,
					})
					sum += sim
					count++
				}
			}
		}
	}

	if count == 0 {
		return matches, 0.0
	}
	score := math.Round(sum/float64(count)*100*100) / 100
	return matches, score
}

// Matcher 匹配器，对租户的全部简历评分并排名
type Matcher struct {
	store       DocumentStore
	jdEmbedder  *JDEmbedder
	threshold   float64
	minScore    float64
	concurrency int
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// MatcherOption 匹配器配置选项
type MatcherOption func(*Matcher)

// WithThreshold 设置默认相似度阈值
func WithThreshold(t float64) MatcherOption {
	return func(m *Matcher) {
		m.threshold = t
	}
}

// WithMinScore 设置默认排名过滤下限
func WithMinScore(s float64) MatcherOption {
	return func(m *Matcher) {
		m.minScore = s
	}
}

// WithConcurrency 设置并行评分的简历数
func WithConcurrency(n int) MatcherOption {
	return func(m *Matcher) {
		m.concurrency = n
	}
}

// NewMatcher 创建匹配器
func NewMatcher(store DocumentStore, jdEmbedder *JDEmbedder, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		store:       store,
		jdEmbedder:  jdEmbedder,
		threshold:   constants.DefaultMatchThreshold,
		minScore:    constants.DefaultMinScore,
		concurrency: constants.DefaultMatchConcurrency,
		logger:      applogger.Logger.With().Str("component", "matcher").Logger(),
		tracer:      otel.Tracer("resume-match-go/processor/matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.concurrency < 1 {
		m.concurrency = 1
	}
	return m
}

// MatchParams 单次匹配请求的参数覆盖，nil字段使用匹配器默认值
type MatchParams struct {
	Threshold *float64
	MinScore  *float64
}

// Match 对租户的全部简历评分，返回去重、过滤并按总分降序的结果
// JD向量化失败时整个请求失败并返回显式错误，不返回零分列表，
// 避免调用方把"评分不可用"误读为"无人匹配"。
func (m *Matcher) Match(ctx context.Context, jdText, userID string, params *MatchParams) ([]types.MatchResult, error) {
	ctx, span := m.tracer.Start(ctx, "matcher.Match",
		trace.WithAttributes(
			attribute.String("tenant.user_id", userID),
			attribute.String("jd.preview", tracing.SafeText(jdText)),
		))
	defer span.End()

	if strings.TrimSpace(jdText) == "" {
		return nil, NewProcessError("match", ErrInvalidInput, "职位描述不能为空")
	}
	if userID == "" {
		return nil, NewProcessError("match", ErrInvalidInput, "userId不能为空")
	}

	threshold := m.threshold
	minScore := m.minScore
	if params != nil {
		if params.Threshold != nil {
			threshold = *params.Threshold
		}
		if params.MinScore != nil {
			minScore = *params.MinScore
		}
	}
	if threshold < -1 || threshold > 1 {
		return nil, NewProcessError("match", ErrInvalidInput,
			fmt.Sprintf("threshold必须在[-1, 1]范围内，当前为%v", threshold))
	}
	if minScore < 0 || minScore > 100 {
		return nil, NewProcessError("match", ErrInvalidInput,
			fmt.Sprintf("minScore必须在[0, 100]范围内，当前为%v", minScore))
	}

	jdCategories, err := m.jdEmbedder.EmbedCategories(ctx, jdText)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEmbedding)
		return nil, err
	}

	docs, err := m.store.ListResumeDocumentsByUser(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, NewProcessError("match", err, "读取租户简历失败")
	}

	// 简历间无共享可变状态，按简历并行评分
	results := make([]types.MatchResult, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range docs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			doc := &docs[i]
			chunks, err := chunksFromModel(doc.Chunks)
			if err != nil {
				return NewProcessError("match", err, "解析简历向量失败").WithResume(doc.ID)
			}

			matches, score := ScoreResume(jdCategories, chunks, threshold)
			results[i] = types.MatchResult{
				ResumeID:     doc.ID,
				CandidateID:  doc.CandidateID,
				Filename:     doc.Filename,
				Name:         doc.Name,
				Email:        doc.Email,
				Categories:   matches,
				OverallScore: score,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := Rank(results, minScore)

	m.logger.Info().
		Str("user_id", userID).
		Int("scored", len(results)).
		Int("ranked", len(ranked)).
		Float64("threshold", threshold).
		Msg("匹配完成")
	span.SetAttributes(
		attribute.Int("match.scored", len(results)),
		attribute.Int("match.ranked", len(ranked)),
	)
	return ranked, nil
}

// chunksFromModel 反序列化存储行里的向量
func chunksFromModel(rows []models.ResumeChunk) ([]types.Chunk, error) {
	chunks := make([]types.Chunk, 0, len(rows))
	for _, row := range rows {
		var emb []float64
		if err := json.Unmarshal(row.Embedding, &emb); err != nil {
			return nil, fmt.Errorf("分块 seq=%d 的向量损坏: %w", row.Seq, err)
		}
		chunks = append(chunks, types.Chunk{Text: row.Text, Embedding: emb})
	}
	return chunks, nil
}
