package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
	Log               *zap.Logger
}

func NewSubmissionController(submissionService *service.SubmissionService, log *zap.Logger) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService, Log: log}
}

// @Summary 开始作答
// @Description 已有进行中的提交时直接返回该提交
// @Tags 提交
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=service.SubmissionView}
// @Failure 409 {object} util.Response "次数已用完"
// @Router /api/assessments/{id}/submissions [post]
func (c *SubmissionController) StartSubmission(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	sub, err := c.SubmissionService.StartSubmission(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 我的提交记录
// @Tags 提交
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response{data=[]service.SubmissionView}
// @Router /api/assessments/{id}/submissions/mine [get]
func (c *SubmissionController) ListMySubmissions(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	subs, err := c.SubmissionService.ListMySubmissions(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, subs)
}

// @Summary 保存答案
// @Description selected_option_id 与 text_response 必须且只能填写一个
// @Tags 提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提交ID"
// @Param questionId path int true "题目ID"
// @Param body body service.AnswerRequest true "答案"
// @Success 200 {object} util.Response{data=model.AnswerResponse}
// @Failure 409 {object} util.Response "提交已结束"
// @Router /api/submissions/{id}/answers/{questionId} [put]
func (c *SubmissionController) SaveAnswer(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}
	var req service.AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	answer, err := c.SubmissionService.SaveAnswer(ctx.Request.Context(), actor, id, questionID, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, answer)
}

// @Summary 提交测评
// @Tags 提交
// @Produce json
// @Security BearerAuth
// @Param id path int true "提交ID"
// @Success 200 {object} util.Response{data=service.SubmissionView}
// @Router /api/submissions/{id}/submit [post]
func (c *SubmissionController) SubmitAssessment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	sub, err := c.SubmissionService.SubmitAssessment(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 获取提交详情
// @Tags 提交
// @Produce json
// @Security BearerAuth
// @Param id path int true "提交ID"
// @Success 200 {object} util.Response{data=service.SubmissionView}
// @Router /api/submissions/{id} [get]
func (c *SubmissionController) GetSubmission(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	sub, err := c.SubmissionService.GetSubmission(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, sub)
}

// @Summary 测评的全部提交
// @Tags 评分
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param status query string false "in_progress | submitted | graded"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/assessments/{id}/submissions [get]
func (c *SubmissionController) ListSubmissionsForAssessment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx)
	status := model.SubmissionStatus(ctx.Query("status"))

	subs, total, err := c.SubmissionService.ListSubmissionsForAssessment(ctx.Request.Context(), actor, id, status, page, limit)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: subs, Total: total, Page: page, Limit: limit})
}

// @Summary 人工评分
// @Description 可重复评分；所有作答都有分数后状态变为 graded
// @Tags 评分
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "提交ID"
// @Param body body service.GradeRequest true "评分"
// @Success 200 {object} util.Response{data=service.SubmissionView}
// @Router /api/teacher/submissions/{id}/grade [post]
func (c *SubmissionController) GradeSubmission(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	sub, err := c.SubmissionService.GradeSubmission(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, sub)
}
