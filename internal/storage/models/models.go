package models

import (
	"time"

	"gorm.io/datatypes"
)

// ResumeDocument 一份已摄取的简历
// (user_id, filename, candidate_id) 的唯一索引是去重的权威约束，
// candidate_id为空串时退化为租户内按文件名判重。应用层的存在性
// 检查只是避免浪费embedding调用的快速路径。
type ResumeDocument struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	Filename    string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_resume_scope_filename,priority:2"`
	CandidateID string    `gorm:"type:varchar(36);uniqueIndex:idx_resume_scope_filename,priority:3;index"`
	UserID      string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_resume_scope_filename,priority:1;index"`
	Name        string    `gorm:"type:varchar(255)"`
	Email       string    `gorm:"type:varchar(255)"`
	UploadedAt  time.Time `gorm:"type:datetime(6);autoCreateTime"`
	// RawTextObject 简历原文在MinIO中的对象名，为空表示未归档
	RawTextObject string `gorm:"type:varchar(512)"`

	Chunks []ResumeChunk `gorm:"foreignKey:ResumeID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (ResumeDocument) TableName() string {
	return "resume_documents"
}

// ResumeChunk 简历的一个文本分块及其向量
// Seq 保持分块在原文中的顺序，文本重建依赖它
type ResumeChunk struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	ResumeID  string         `gorm:"type:varchar(36);not null;index"`
	Seq       int            `gorm:"not null"`
	Text      string         `gorm:"type:text;not null"`
	Embedding datatypes.JSON `gorm:"not null"`
}

// TableName 指定表名
func (ResumeChunk) TableName() string {
	return "resume_chunks"
}

// Candidate 候选人档案，由外部的结构化解析服务填充
type Candidate struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;index"`
	Name      string    `gorm:"type:varchar(255)"`
	Email     string    `gorm:"type:varchar(255);index"`
	CreatedAt time.Time `gorm:"type:datetime(6);autoCreateTime"`
}

// TableName 指定表名
func (Candidate) TableName() string {
	return "candidates"
}

// Job 一个职位，其字段拼接后作为匹配请求的JD文本
type Job struct {
	ID          string    `gorm:"type:varchar(36);primaryKey"`
	UserID      string    `gorm:"type:varchar(36);not null;index"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Skills      string    `gorm:"type:text"`
	Experience  string    `gorm:"type:text"`
	Education   string    `gorm:"type:text"`
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"type:datetime(6);autoCreateTime"`
}

// TableName 指定表名
func (Job) TableName() string {
	return "jobs"
}
