package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
	Log               *zap.Logger
}

func NewAssessmentController(assessmentService *service.AssessmentService, log *zap.Logger) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService, Log: log}
}

// @Summary 获取测评详情
// @Description 学生视图隐藏正确答案；view=teacher 仅限课程讲师
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param view query string false "teacher"
// @Success 200 {object} util.Response{data=service.AssessmentView}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.AssessmentService.GetAssessment(ctx.Request.Context(), actor, id, ctx.Query("view") == "teacher")
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 列出模块下的测评
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response{data=[]service.AssessmentView}
// @Router /api/teacher/modules/{id}/assessments [get]
func (c *AssessmentController) ListModuleAssessments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	moduleID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	views, err := c.AssessmentService.ListModuleAssessments(ctx.Request.Context(), actor, moduleID)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, views)
}

// @Summary 创建测评
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Param body body service.AssessmentRequest true "测评"
// @Success 201 {object} util.Response{data=service.AssessmentView}
// @Failure 400 {object} util.Response
// @Router /api/teacher/modules/{id}/assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	moduleID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.AssessmentService.CreateAssessment(ctx.Request.Context(), actor, moduleID, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary 更新测评
// @Tags 测评
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param body body service.AssessmentRequest true "测评"
// @Success 200 {object} util.Response{data=service.AssessmentView}
// @Router /api/teacher/assessments/{id} [put]
func (c *AssessmentController) UpdateAssessment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.AssessmentService.UpdateAssessment(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 删除测评
// @Description 已有提交记录的测评不能删除
// @Tags 测评
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/teacher/assessments/{id} [delete]
func (c *AssessmentController) DeleteAssessment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.AssessmentService.DeleteAssessment(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 添加题目
// @Tags 题目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "测评ID"
// @Param body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=service.QuestionView}
// @Router /api/teacher/assessments/{id}/questions [post]
func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.AssessmentService.AddQuestion(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary 更新题目
// @Description 只更新请求中出现的字段；options 会整体替换
// @Tags 题目
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Param body body service.QuestionUpdateRequest true "题目"
// @Success 200 {object} util.Response{data=service.QuestionView}
// @Router /api/teacher/questions/{id} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, err := c.AssessmentService.UpdateQuestion(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 删除题目
// @Tags 题目
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/questions/{id} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	if err := c.AssessmentService.DeleteQuestion(ctx.Request.Context(), actor, id); err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, nil)
}
