package constants

import "time"

const (
	// 简历文本分块参数，窗口小于JD以保留局部语义
	DefaultResumeChunkSize    = 500
	DefaultResumeChunkOverlap = 100

	// JD类别文本分块参数
	DefaultJDChunkSize    = 1000
	DefaultJDChunkOverlap = 200

	// DefaultMatchThreshold 相似度命中阈值，低于该值的比较对直接丢弃
	DefaultMatchThreshold = 0.4

	// DefaultMinScore 排名过滤下限，总分需严格大于该值才保留
	DefaultMinScore = 30.0

	// DefaultMatchConcurrency 单次匹配请求中并行评分的简历数上限
	DefaultMatchConcurrency = 8

	// JDVectorCacheDuration JD向量缓存的有效期
	JDVectorCacheDuration = 24 * time.Hour

	// Exchange与路由键，摄取事件经发件箱投递
	ResumeEventsExchange     = "resume.events"
	ResumeIngestedRoutingKey = "resume.ingested"
	ResumeIngestedQueue      = "resume.ingested.queue"
)
