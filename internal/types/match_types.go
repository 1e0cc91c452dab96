package types

import "time"

// JD类别名称，与分类器和匹配器共享
const (
	CategorySkills           = "skills"
	CategoryExperience       = "experience"
	CategoryEducation        = "education"
	CategoryResponsibilities = "responsibilities"
	CategorySummary          = "summary"
)

// JDCategoryNames 按固定顺序列出全部JD类别
// 顺序影响遍历的确定性，不影响评分结果
var JDCategoryNames = []string{
	CategorySkills,
	CategoryExperience,
	CategoryEducation,
	CategoryResponsibilities,
	CategorySummary,
}

// Chunk 一段源文本及其向量表示
// 由摄取或JD向量化阶段创建，之后不再修改
type Chunk struct {
	Text      string    `json:"text"`
	Embedding []float64 `json:"embedding"`
}

// ChunkMatch 一对JD分块与简历分块之间的相似度命中
type ChunkMatch struct {
	JDText     string  `json:"jd_text"`
	ResumeText string  `json:"resume_text"`
	Similarity float64 `json:"similarity"`
}

// MatchResult 单份简历针对一次匹配请求的评分结果
// 按请求即时计算，不落库
type MatchResult struct {
	ResumeID     string                  `json:"resume_id"`
	CandidateID  string                  `json:"candidate_id,omitempty"`
	Filename     string                  `json:"filename"`
	Name         string                  `json:"name,omitempty"`
	Email        string                  `json:"email,omitempty"`
	Categories   map[string][]ChunkMatch `json:"categories"`
	OverallScore float64                 `json:"overall_score"`
}

// ResumeIngestedEvent 简历摄取完成后经发件箱发布的事件
type ResumeIngestedEvent struct {
	ResumeID    string    `json:"resume_id"`
	UserID      string    `json:"user_id"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Filename    string    `json:"filename"`
	ChunkCount  int       `json:"chunk_count"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
