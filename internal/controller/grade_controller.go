package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type GradeController struct {
	GradeService *service.GradeService
	Log          *zap.Logger
}

func NewGradeController(gradeService *service.GradeService, log *zap.Logger) *GradeController {
	return &GradeController{GradeService: gradeService, Log: log}
}

// @Summary 我的课程成绩
// @Tags 成绩
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseGradeView}
// @Router /api/courses/{id}/grades/mine [get]
func (c *GradeController) MyCourseGrades(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.GradeService.GetCourseGrades(ctx.Request.Context(), actor, id)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 课程全部学生成绩
// @Tags 成绩
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/courses/{id}/grades [get]
func (c *GradeController) ListCourseGrades(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := util.Pagination(ctx)
	grades, total, err := c.GradeService.ListCourseGrades(ctx.Request.Context(), actor, id, page, limit)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: grades, Total: total, Page: page, Limit: limit})
}
