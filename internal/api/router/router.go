package router

import (
	"context"

	"resume-match-go/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, matchHandler *handler.MatchHandler) {
	api := h.Group("/api/v1")

	// 简历
	api.POST("/resumes/upload", resumeHandler.Upload)
	api.POST("/resumes/ingest", resumeHandler.Ingest)
	api.GET("/resumes/:resume_id/text", resumeHandler.GetText)
	api.DELETE("/candidates/:candidate_id/resumes", resumeHandler.DeleteByCandidate)

	// 匹配
	api.POST("/match", matchHandler.Match)
	api.GET("/jobs/:job_id/match", matchHandler.MatchByJob)

	// 健康检查
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
