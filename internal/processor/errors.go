package processor

import (
	"errors"
	"fmt"
)

// 错误分类，调用方据此决定HTTP状态码或重试策略
var (
	// ErrConfiguration 分块参数等配置非法，构造阶段拒绝，请求期不出现
	ErrConfiguration = errors.New("配置错误")

	// ErrDuplicateResume 同一作用域下的重复上传
	ErrDuplicateResume = errors.New("简历已存在")

	// ErrProvider embedding或文本提取等外部服务调用失败
	ErrProvider = errors.New("外部服务调用失败")

	// ErrNotFound 请求的记录不存在
	ErrNotFound = errors.New("记录不存在")

	// ErrInvalidInput 入参非法
	ErrInvalidInput = errors.New("输入无效")
)

// ProcessError 摄取与匹配流程的错误包装，携带操作名与关联的简历ID
type ProcessError struct {
	Op       string // 失败的操作，如 "ingest", "match"
	ResumeID string // 关联的简历ID，可为空
	BaseErr  error  // 所属的错误分类
	Detail   string // 具体原因
}

// NewProcessError 创建流程错误
func NewProcessError(op string, baseErr error, detail string) *ProcessError {
	return &ProcessError{Op: op, BaseErr: baseErr, Detail: detail}
}

// WithResume 关联简历ID
func (e *ProcessError) WithResume(resumeID string) *ProcessError {
	e.ResumeID = resumeID
	return e
}

func (e *ProcessError) Error() string {
	if e.ResumeID != "" {
		return fmt.Sprintf("%s: %v (resume=%s): %s", e.Op, e.BaseErr, e.ResumeID, e.Detail)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.BaseErr, e.Detail)
}

// Unwrap 支持 errors.Is 按分类匹配
func (e *ProcessError) Unwrap() error {
	return e.BaseErr
}
