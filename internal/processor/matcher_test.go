package processor

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCosineSimilarityBounds(t *testing.T) {
	a := []float64{0.3, -0.5, 0.8}
	b := []float64{-0.2, 0.9, 0.1}

	sim := CosineSimilarity(a, b)
	assert.GreaterOrEqual(t, sim, -1.0)
	assert.LessOrEqual(t, sim, 1.0)

	// 自身相似度约为1
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)

	// 反向向量约为-1
	neg := []float64{-0.3, 0.5, -0.8}
	assert.InDelta(t, -1.0, CosineSimilarity(a, neg), 1e-9)
}

func TestCosineSimilarityDegenerateVectors(t *testing.T) {
	// 零向量除零保护
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0, 0}, []float64{1, 2, 3}))

	// 维度不一致（空文本的一维零向量对真实向量）不比较
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0}, []float64{1, 0, 0, 0}))

	assert.Equal(t, 0.0, CosineSimilarity(nil, []float64{1}))
}

func TestScoreResumeThresholdFiltering(t *testing.T) {
	jdCategories := map[string][]types.Chunk{
		types.CategorySkills: {{Text: "jd chunk", Embedding: []float64{1, 0}}},
	}

	// 单位向量的点积即相似度
	below := []types.Chunk{{Text: "below", Embedding: []float64{0.39, math.Sqrt(1 - 0.39*0.39)}}}
	matches, score := ScoreResume(jdCategories, below, 0.4)
	assert.Empty(t, matches[types.CategorySkills])
	assert.Equal(t, 0.0, score)

	above := []types.Chunk{{Text: "above", Embedding: []float64{0.5, math.Sqrt(1 - 0.5*0.5)}}}
	matches, score = ScoreResume(jdCategories, above, 0.4)
	require.Len(t, matches[types.CategorySkills], 1)
	assert.InDelta(t, 50.0, score, 0.01)
}

func TestScoreResumeMeanAndRounding(t *testing.T) {
	jdCategories := map[string][]types.Chunk{
		types.CategorySkills:     {{Text: "skills jd", Embedding: []float64{1, 0}}},
		types.CategoryExperience: {{Text: "exp jd", Embedding: []float64{0, 1}}},
	}
	resumeChunks := []types.Chunk{
		{Text: "chunk", Embedding: []float64{1, 0}},
	}

	// skills命中1.0，experience命中0，阈值0下只统计>=0的全部
	matches, score := ScoreResume(jdCategories, resumeChunks, 0.5)
	require.Len(t, matches[types.CategorySkills], 1)
	assert.Empty(t, matches[types.CategoryExperience])
	assert.InDelta(t, 100.0, score, 1e-9)

	// 两个命中0.5和0.75，均值0.625 -> 62.5
	jdCategories = map[string][]types.Chunk{
		types.CategorySkills: {
			{Text: "a", Embedding: []float64{0.5, math.Sqrt(1 - 0.25)}},
			{Text: "b", Embedding: []float64{0.75, math.Sqrt(1 - 0.5625)}},
		},
	}
	resumeChunks = []types.Chunk{{Text: "c", Embedding: []float64{1, 0}}}
	_, score = ScoreResume(jdCategories, resumeChunks, 0.4)
	assert.InDelta(t, 62.5, score, 0.01)
}

func TestScoreResumeNoChunks(t *testing.T) {
	matches, score := ScoreResume(map[string][]types.Chunk{}, nil, 0.4)
	assert.Empty(t, matches)
	assert.Equal(t, 0.0, score)
}

// pythonAwareEmbedder 含"python"的文本得到同一向量，其余正交
func pythonAwareEmbedder() *mockEmbedder {
	return newMockEmbedder(func(text string) []float64 {
		if strings.Contains(strings.ToLower(text), "python") {
			return []float64{1, 0, 0, 0}
		}
		return []float64{0, 1, 0, 0}
	})
}

func seedResume(store *mockStore, id, userID, email string, chunkText string, embedding string) {
	store.docs[id] = &models.ResumeDocument{
		ID:       id,
		Filename: id + ".pdf",
		UserID:   userID,
		Email:    email,
		Chunks: []models.ResumeChunk{
			{ResumeID: id, Seq: 0, Text: chunkText, Embedding: datatypes.JSON(embedding)},
		},
	}
}

func TestMatchEndToEnd(t *testing.T) {
	store := newMockStore()
	seedResume(store, "r1", "tenant-1", "dev@example.com", "Experienced Python developer", `[1,0,0,0]`)

	jd, err := NewJDEmbedder(pythonAwareEmbedder(), "test-model")
	require.NoError(t, err)
	matcher := NewMatcher(store, jd)

	results, err := matcher.Match(context.Background(), "Skills: Python, SQL", "tenant-1", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "r1", r.ResumeID)
	assert.Greater(t, r.OverallScore, 0.0)
	require.Len(t, r.Categories[types.CategorySkills], 1)
	assert.Equal(t, "Experienced Python developer", r.Categories[types.CategorySkills][0].ResumeText)
}

func TestMatchTenantScoping(t *testing.T) {
	store := newMockStore()
	seedResume(store, "r1", "tenant-1", "a@example.com", "Python engineer", `[1,0,0,0]`)
	seedResume(store, "r2", "tenant-2", "b@example.com", "Python engineer", `[1,0,0,0]`)

	jd, err := NewJDEmbedder(pythonAwareEmbedder(), "test-model")
	require.NoError(t, err)
	matcher := NewMatcher(store, jd)

	results, err := matcher.Match(context.Background(), "Skills: Python", "tenant-1", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r1", results[0].ResumeID)
}

func TestMatchInvalidParams(t *testing.T) {
	store := newMockStore()
	jd, err := NewJDEmbedder(newMockEmbedder(nil), "test-model")
	require.NoError(t, err)
	matcher := NewMatcher(store, jd)

	_, err = matcher.Match(context.Background(), "", "tenant-1", nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	badThreshold := 1.5
	_, err = matcher.Match(context.Background(), "Skills: Go", "tenant-1", &MatchParams{Threshold: &badThreshold})
	require.ErrorIs(t, err, ErrInvalidInput)

	badMinScore := -5.0
	_, err = matcher.Match(context.Background(), "Skills: Go", "tenant-1", &MatchParams{MinScore: &badMinScore})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestMatchProviderErrorReturnsNoResults(t *testing.T) {
	store := newMockStore()
	seedResume(store, "r1", "tenant-1", "a@example.com", "text", `[1,0,0,0]`)

	embedder := newMockEmbedder(nil)
	embedder.err = errors.New("provider down")
	jd, err := NewJDEmbedder(embedder, "test-model")
	require.NoError(t, err)
	matcher := NewMatcher(store, jd)

	// JD向量化失败返回显式错误而不是零分列表
	results, err := matcher.Match(context.Background(), "Skills: Go", "tenant-1", nil)
	require.ErrorIs(t, err, ErrProvider)
	assert.Nil(t, results)
}

func TestMatchThresholdOverridePerRequest(t *testing.T) {
	store := newMockStore()
	// 与JD skills向量的相似度固定为0.45
	seedResume(store, "r1", "tenant-1", "a@example.com", "Python dev",
		`[0.45,0.8930285549745876,0,0]`)

	jd, err := NewJDEmbedder(pythonAwareEmbedder(), "test-model")
	require.NoError(t, err)
	matcher := NewMatcher(store, jd)

	// 默认阈值0.4命中
	lowMin := 0.0
	results, err := matcher.Match(context.Background(), "Skills: Python", "tenant-1", &MatchParams{MinScore: &lowMin})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].OverallScore, 0.0)

	// 阈值提到0.5后不命中，总分0被minScore=0过滤（0 > 0 不成立）
	highThreshold := 0.5
	results, err = matcher.Match(context.Background(), "Skills: Python", "tenant-1",
		&MatchParams{Threshold: &highThreshold, MinScore: &lowMin})
	require.NoError(t, err)
	assert.Empty(t, results)
}
