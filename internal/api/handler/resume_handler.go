package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"resume-match-go/internal/processor"
	"resume-match-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ResumeHandler 简历上传、摄取、查询和删除的HTTP处理器
type ResumeHandler struct {
	ingestor  *processor.Ingestor
	extractor processor.TextExtractor
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(ingestor *processor.Ingestor, extractor processor.TextExtractor) *ResumeHandler {
	return &ResumeHandler{
		ingestor:  ingestor,
		extractor: extractor,
	}
}

// renderError 按错误类别映射HTTP状态码
func renderError(ctx *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, processor.ErrInvalidInput):
		status = consts.StatusBadRequest
	case errors.Is(err, processor.ErrDuplicateResume):
		status = consts.StatusConflict
	case errors.Is(err, processor.ErrNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, processor.ErrProvider):
		status = consts.StatusBadGateway
	}
	ctx.JSON(status, utils.H{"error": err.Error()})
}

type uploadFileResult struct {
	Filename string `json:"filename"`
	ResumeID string `json:"resume_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Upload 处理multipart PDF上传
// 表单字段: file（可多个）、user_id、candidate_id（可选）
func (h *ResumeHandler) Upload(c context.Context, ctx *app.RequestContext) {
	userID := strings.TrimSpace(ctx.PostForm("user_id"))
	if userID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空"})
		return
	}
	candidateID := strings.TrimSpace(ctx.PostForm("candidate_id"))

	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "解析multipart表单失败"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
		return
	}

	results := make([]uploadFileResult, 0, len(files))
	succeeded := 0
	var lastErr error
	for _, fileHeader := range files {
		r := uploadFileResult{Filename: fileHeader.Filename}

		text, err := h.extractFile(c, fileHeader)
		if err == nil {
			var doc *models.ResumeDocument
			doc, err = h.ingestor.Ingest(c, fileHeader.Filename, text, userID, candidateID)
			if err == nil {
				r.Status = "ingested"
				r.ResumeID = doc.ID
				succeeded++
			}
		}
		if err != nil {
			lastErr = err
			r.Error = err.Error()
			if errors.Is(err, processor.ErrDuplicateResume) {
				r.Status = "duplicate"
			} else {
				r.Status = "failed"
			}
		}
		results = append(results, r)
	}

	// 单文件上传失败时直接按错误状态码返回
	if len(results) == 1 && succeeded == 0 {
		renderError(ctx, lastErr)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"total":     len(results),
		"succeeded": succeeded,
		"results":   results,
	})
}

// extractFile 打开并提取单个上传文件的文本，失败归类为外部服务错误
func (h *ResumeHandler) extractFile(c context.Context, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", processor.NewProcessError("upload", processor.ErrInvalidInput, "打开文件失败: "+err.Error())
	}
	defer file.Close()

	text, err := h.extractor.ExtractText(c, file, fileHeader.Filename)
	if err != nil {
		return "", processor.NewProcessError("upload", processor.ErrProvider, "PDF文本提取失败: "+err.Error())
	}
	return text, nil
}

type ingestRequest struct {
	Filename    string `json:"filename"`
	Text        string `json:"text"`
	UserID      string `json:"user_id"`
	CandidateID string `json:"candidate_id"`
}

// Ingest 摄取已提取好文本的简历
func (h *ResumeHandler) Ingest(c context.Context, ctx *app.RequestContext) {
	var req ingestRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}

	doc, err := h.ingestor.Ingest(c, req.Filename, req.Text, req.UserID, req.CandidateID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"resume_id":   doc.ID,
		"name":        doc.Name,
		"email":       doc.Email,
		"chunk_count": len(doc.Chunks),
	})
}

// GetText 按分块顺序重建简历全文
func (h *ResumeHandler) GetText(c context.Context, ctx *app.RequestContext) {
	resumeID := ctx.Param("resume_id")

	text, filename, err := h.ingestor.GetResumeText(c, resumeID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"resume_id": resumeID,
		"filename":  filename,
		"text":      text,
	})
}

// DeleteByCandidate 删除候选人的全部简历
func (h *ResumeHandler) DeleteByCandidate(c context.Context, ctx *app.RequestContext) {
	candidateID := strings.TrimSpace(ctx.Param("candidate_id"))
	if candidateID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "candidate_id不能为空"})
		return
	}

	deleted, err := h.ingestor.DeleteByCandidate(c, candidateID)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"candidate_id": candidateID,
		"deleted":      deleted,
	})
}
