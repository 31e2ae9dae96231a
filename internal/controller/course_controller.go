package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CourseController struct {
	CourseService *service.CourseService
	Log           *zap.Logger
}

func NewCourseController(courseService *service.CourseService, log *zap.Logger) *CourseController {
	return &CourseController{CourseService: courseService, Log: log}
}

// @Summary 创建课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CourseRequest true "课程"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/teacher/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.CourseService.CreateCourse(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary 创建模块
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Param body body service.ModuleRequest true "模块"
// @Success 201 {object} util.Response{data=model.Module}
// @Router /api/teacher/courses/{id}/modules [post]
func (c *CourseController) CreateModule(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CourseService.CreateModule(ctx.Request.Context(), actor, id, req)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Created(ctx, module)
}

// @Summary 课程模块列表
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Module}
// @Router /api/courses/{id}/modules [get]
func (c *CourseController) ListModules(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	modules, err := c.CourseService.ListModules(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Success(ctx, modules)
}
