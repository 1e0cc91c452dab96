package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"resume-match-go/internal/storage/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestStoresChunksAndEvent(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder(nil)
	ing, err := NewIngestor(store, embedder)
	require.NoError(t, err)

	text := "Jane Doe\njane.doe@example.com\n" + strings.Repeat("Go developer with distributed systems background. ", 30)
	doc, err := ing.Ingest(context.Background(), "jane.pdf", text, "tenant-1", "cand-1")
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)

	assert.Equal(t, "Jane Doe", doc.Name)
	assert.Equal(t, "jane.doe@example.com", doc.Email)

	saved, err := store.GetResumeDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, saved.Chunks)

	// 分块保持文本顺序，向量可反序列化
	for i, c := range saved.Chunks {
		assert.Equal(t, i, c.Seq)
		var emb []float64
		require.NoError(t, json.Unmarshal(c.Embedding, &emb))
		assert.Len(t, emb, 4)
	}

	// 摄取事件与文档同事务写入
	require.Len(t, store.events, 1)
	event := store.events[0]
	assert.Equal(t, doc.ID, event.AggregateID)
	assert.Equal(t, models.OutboxStatusPending, event.Status)
	assert.Equal(t, "resume.ingested", event.TargetRoutingKey)

	// 一次批量调用覆盖全部分块
	assert.Equal(t, 1, embedder.callCount())
}

func TestIngestDuplicateRejectedWithoutEmbeddingCalls(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder(nil)
	ing, err := NewIngestor(store, embedder)
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "dup.pdf", "some resume text", "tenant-1", "cand-1")
	require.NoError(t, err)
	callsAfterFirst := embedder.callCount()

	_, err = ing.Ingest(context.Background(), "dup.pdf", "some resume text", "tenant-1", "cand-1")
	require.ErrorIs(t, err, ErrDuplicateResume)

	// 重复上传在任何embedding调用之前被拒绝
	assert.Equal(t, callsAfterFirst, embedder.callCount())
}

func TestIngestTenantScopedDuplicateWithoutCandidate(t *testing.T) {
	store := newMockStore()
	ing, err := NewIngestor(store, newMockEmbedder(nil))
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "cv.pdf", "text", "tenant-1", "")
	require.NoError(t, err)

	// 同租户同文件名冲突
	_, err = ing.Ingest(context.Background(), "cv.pdf", "other text", "tenant-1", "")
	require.ErrorIs(t, err, ErrDuplicateResume)

	// 其他租户不受影响
	_, err = ing.Ingest(context.Background(), "cv.pdf", "text", "tenant-2", "")
	require.NoError(t, err)
}

func TestIngestEmptyTextCreatesDocumentWithoutChunks(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder(nil)
	ing, err := NewIngestor(store, embedder)
	require.NoError(t, err)

	doc, err := ing.Ingest(context.Background(), "scanned.pdf", "   \n  ", "tenant-1", "cand-1")
	require.NoError(t, err)

	saved, err := store.GetResumeDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.Chunks)
	assert.Equal(t, 0, embedder.callCount())
}

func TestIngestProviderErrorAbortsWholeDocument(t *testing.T) {
	store := newMockStore()
	embedder := newMockEmbedder(nil)
	embedder.err = errors.New("connection refused")
	ing, err := NewIngestor(store, embedder)
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "cv.pdf", "resume text", "tenant-1", "cand-1")
	require.ErrorIs(t, err, ErrProvider)

	// 全有或全无，不留半成品
	docs, err := store.ListResumeDocumentsByUser(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, store.events)
}

func TestIngestInvalidInput(t *testing.T) {
	ing, err := NewIngestor(newMockStore(), newMockEmbedder(nil))
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "  ", "text", "tenant-1", "cand-1")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ing.Ingest(context.Background(), "cv.pdf", "text", "", "cand-1")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewIngestorRejectsBadChunkConfig(t *testing.T) {
	_, err := NewIngestor(newMockStore(), newMockEmbedder(nil), WithResumeChunking(100, 100))
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewIngestor(newMockStore(), newMockEmbedder(nil), WithResumeChunking(0, 0))
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestDeleteByCandidateIdempotent(t *testing.T) {
	store := newMockStore()
	ing, err := NewIngestor(store, newMockEmbedder(nil))
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "a.pdf", "text a", "tenant-1", "cand-9")
	require.NoError(t, err)
	_, err = ing.Ingest(context.Background(), "b.pdf", "text b", "tenant-1", "cand-9")
	require.NoError(t, err)

	count, err := ing.DeleteByCandidate(context.Background(), "cand-9")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// 再删一次没有可删的，返回0不报错
	count, err = ing.DeleteByCandidate(context.Background(), "cand-9")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIngestAfterDeleteAllowedWithDedupCache(t *testing.T) {
	store := newMockStore()
	dedup := newMockDedup()
	ing, err := NewIngestor(store, newMockEmbedder(nil), WithDedupCache(dedup))
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "cv.pdf", "resume text", "tenant-1", "cand-1")
	require.NoError(t, err)

	_, err = ing.Ingest(context.Background(), "cv.pdf", "resume text", "tenant-1", "cand-1")
	require.ErrorIs(t, err, ErrDuplicateResume)

	count, err := ing.DeleteByCandidate(context.Background(), "cand-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	// 删除后缓存标记必须跟着失效，重新摄取与存储的回答一致
	seen, err := dedup.IsResumeSeen(context.Background(), "tenant-1", "cv.pdf", "cand-1")
	require.NoError(t, err)
	assert.False(t, seen)

	_, err = ing.Ingest(context.Background(), "cv.pdf", "resume text", "tenant-1", "cand-1")
	require.NoError(t, err)
}

func TestDeleteByCandidateRemovesArchivedText(t *testing.T) {
	store := newMockStore()
	archive := newMockArchive()
	ing, err := NewIngestor(store, newMockEmbedder(nil), WithTextArchive(archive))
	require.NoError(t, err)

	doc, err := ing.Ingest(context.Background(), "cv.pdf", "resume text", "tenant-1", "cand-1")
	require.NoError(t, err)
	require.NotEmpty(t, doc.RawTextObject)
	require.Equal(t, 1, archive.count())

	_, err = ing.DeleteByCandidate(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, 0, archive.count())
}

func TestGetResumeTextJoinsChunksInOrder(t *testing.T) {
	store := newMockStore()
	ing, err := NewIngestor(store, newMockEmbedder(nil), WithResumeChunking(10, 2))
	require.NoError(t, err)

	doc, err := ing.Ingest(context.Background(), "cv.pdf", "abcdefghijklmnopqrstuvwxyz", "tenant-1", "cand-1")
	require.NoError(t, err)

	text, filename, err := ing.GetResumeText(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", filename)

	// 重叠边界处重建有损，但每个分块按顺序出现
	lines := strings.Split(text, "\n")
	assert.Equal(t, "abcdefghij", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ij"))
}

func TestGetResumeTextNotFound(t *testing.T) {
	ing, err := NewIngestor(newMockStore(), newMockEmbedder(nil))
	require.NoError(t, err)

	_, _, err = ing.GetResumeText(context.Background(), "missing-id")
	require.ErrorIs(t, err, ErrNotFound)
}
