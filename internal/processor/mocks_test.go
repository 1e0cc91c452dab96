package processor

import (
	"context"
	"strings"
	"sync"

	"resume-match-go/internal/storage/models"
	"resume-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"gorm.io/gorm"
)

// mockEmbedder 可编程的embedding客户端，统计远程调用次数
type mockEmbedder struct {
	mu      sync.Mutex
	calls   int
	embedFn func(text string) []float64
	err     error
}

func newMockEmbedder(embedFn func(text string) []float64) *mockEmbedder {
	if embedFn == nil {
		embedFn = func(string) []float64 { return []float64{1, 0, 0, 0} }
	}
	return &mockEmbedder{embedFn: embedFn}
}

func (m *mockEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = m.embedFn(t)
	}
	return out, nil
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return []float64{0}, nil
	}
	vectors, err := m.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) GetDimensions() int { return 4 }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockStore 内存版DocumentStore
type mockStore struct {
	mu        sync.Mutex
	docs      map[string]*models.ResumeDocument
	events    []*models.OutboxMessage
	createErr error
}

func newMockStore() *mockStore {
	return &mockStore{docs: make(map[string]*models.ResumeDocument)}
}

func (s *mockStore) ResumeExists(_ context.Context, filename, candidateID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if candidateID != "" {
			if doc.Filename == filename && doc.CandidateID == candidateID {
				return true, nil
			}
		} else if doc.Filename == filename && doc.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *mockStore) CreateResumeDocument(_ context.Context, doc *models.ResumeDocument, chunks []models.ResumeChunk, event *models.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}

	saved := *doc
	saved.Chunks = append([]models.ResumeChunk(nil), chunks...)
	s.docs[doc.ID] = &saved
	if event != nil {
		s.events = append(s.events, event)
	}
	return nil
}

func (s *mockStore) GetResumeDocument(_ context.Context, resumeID string) (*models.ResumeDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[resumeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return doc, nil
}

func (s *mockStore) ListResumeDocumentsByUser(_ context.Context, userID string) ([]models.ResumeDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []models.ResumeDocument
	for _, doc := range s.docs {
		if doc.UserID == userID {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (s *mockStore) DeleteResumesByCandidate(_ context.Context, candidateID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, doc := range s.docs {
		if doc.CandidateID == candidateID {
			delete(s.docs, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *mockStore) ListResumeRefsByCandidate(_ context.Context, candidateID string) ([]models.ResumeDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var refs []models.ResumeDocument
	for _, doc := range s.docs {
		if doc.CandidateID == candidateID {
			refs = append(refs, models.ResumeDocument{
				ID:            doc.ID,
				UserID:        doc.UserID,
				Filename:      doc.Filename,
				CandidateID:   doc.CandidateID,
				RawTextObject: doc.RawTextObject,
			})
		}
	}
	return refs, nil
}

// mockDedup 内存版去重缓存
type mockDedup struct {
	mu      sync.Mutex
	members map[string]bool
}

func newMockDedup() *mockDedup {
	return &mockDedup{members: make(map[string]bool)}
}

func dedupKey(userID, filename, candidateID string) string {
	return userID + "|" + filename + "|" + candidateID
}

func (d *mockDedup) IsResumeSeen(_ context.Context, userID, filename, candidateID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.members[dedupKey(userID, filename, candidateID)], nil
}

func (d *mockDedup) MarkResumeSeen(_ context.Context, userID, filename, candidateID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[dedupKey(userID, filename, candidateID)] = true
	return nil
}

func (d *mockDedup) UnmarkResumeSeen(_ context.Context, userID, filename, candidateID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.members, dedupKey(userID, filename, candidateID))
	return nil
}

// mockArchive 内存版原文归档
type mockArchive struct {
	mu      sync.Mutex
	objects map[string]string
}

func newMockArchive() *mockArchive {
	return &mockArchive{objects: make(map[string]string)}
}

func (a *mockArchive) UploadResumeText(_ context.Context, resumeID, text string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	objectName := "resumes/" + resumeID + ".txt"
	a.objects[objectName] = text
	return objectName, nil
}

func (a *mockArchive) DeleteResumeText(_ context.Context, objectName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, objectName)
	return nil
}

func (a *mockArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}

// mockJDCache 内存版JD向量缓存
type mockJDCache struct {
	mu   sync.Mutex
	data map[string]map[string][]types.Chunk
	hits int
}

func newMockJDCache() *mockJDCache {
	return &mockJDCache{data: make(map[string]map[string][]types.Chunk)}
}

func (c *mockJDCache) GetJDCategoryVectors(_ context.Context, cacheKey, model string) (map[string][]types.Chunk, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cats, ok := c.data[model+":"+cacheKey]
	if ok {
		c.hits++
	}
	return cats, ok, nil
}

func (c *mockJDCache) SetJDCategoryVectors(_ context.Context, cacheKey, model string, categories map[string][]types.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[model+":"+cacheKey] = categories
	return nil
}
