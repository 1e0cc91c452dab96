package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"resume-match-go/internal/processor"
	"resume-match-go/internal/storage"
	"resume-match-go/internal/storage/models"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"
)

// MatchHandler 岗位描述与简历匹配的HTTP处理器
type MatchHandler struct {
	matcher *processor.Matcher
	store   *storage.MySQL
}

// NewMatchHandler 创建匹配处理器
func NewMatchHandler(matcher *processor.Matcher, store *storage.MySQL) *MatchHandler {
	return &MatchHandler{
		matcher: matcher,
		store:   store,
	}
}

type matchRequest struct {
	JobDescription string   `json:"job_description"`
	UserID         string   `json:"user_id"`
	Threshold      *float64 `json:"threshold,omitempty"`
	MinScore       *float64 `json:"min_score,omitempty"`
}

// Match 用原始JD文本对租户下全部简历打分排序
func (h *MatchHandler) Match(c context.Context, ctx *app.RequestContext) {
	var req matchRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体格式错误"})
		return
	}

	results, err := h.matcher.Match(c, req.JobDescription, req.UserID, &processor.MatchParams{
		Threshold: req.Threshold,
		MinScore:  req.MinScore,
	})
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"count":   len(results),
		"results": results,
	})
}

// MatchByJob 按已存储的岗位记录发起匹配
// 查询参数: user_id（必填）、threshold、min_score
func (h *MatchHandler) MatchByJob(c context.Context, ctx *app.RequestContext) {
	jobID := ctx.Param("job_id")
	userID := strings.TrimSpace(ctx.Query("user_id"))
	if userID == "" {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "user_id不能为空"})
		return
	}

	params := &processor.MatchParams{}
	if raw := ctx.Query("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "threshold格式错误"})
			return
		}
		params.Threshold = &v
	}
	if raw := ctx.Query("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "min_score格式错误"})
			return
		}
		params.MinScore = &v
	}

	job, err := h.store.GetJob(c, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(consts.StatusNotFound, utils.H{"error": "岗位不存在"})
			return
		}
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}

	results, err := h.matcher.Match(c, buildJobText(job), userID, params)
	if err != nil {
		renderError(ctx, err)
		return
	}

	ctx.JSON(consts.StatusOK, utils.H{
		"job_id":  jobID,
		"count":   len(results),
		"results": results,
	})
}

// buildJobText 把结构化岗位字段拼成可分类的JD文本
// 标签与行序固定，分类器按行路由，换了写法会得到不同的类别划分。
// "Description:" 不含任何切换关键词，归入它上面education的类别。
func buildJobText(job *models.Job) string {
	var b strings.Builder
	writeLine := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	writeLine("Job Title", job.Title)
	writeLine("Skills", job.Skills)
	writeLine("Experience", job.Experience)
	writeLine("Education", job.Education)
	writeLine("Description", job.Description)
	return b.String()
}
