package app

import (
	"lms_backend/docs"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", a.Metrics.Handler())

	if a.Config.Storage.Type == util.StorageLocal {
		router.Static("/uploads", a.Config.Storage.LocalPath)
	}

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(a.Config.JWT.Secret, a.Log))
	{
		// 学生/通用 授权接口
		a.registerLearnerRoutes(authGroup, c)

		// 教师相关接口
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	// 测评作答
	rg.GET("/assessments/:id", c.assessment.GetAssessment)
	rg.POST("/assessments/:id/submissions", c.submission.StartSubmission)
	rg.GET("/assessments/:id/submissions/mine", c.submission.ListMySubmissions)
	rg.PUT("/submissions/:id/answers/:questionId", c.submission.SaveAnswer)
	rg.POST("/submissions/:id/submit", c.submission.SubmitAssessment)
	rg.GET("/submissions/:id", c.submission.GetSubmission)

	// 课程与成绩
	rg.GET("/courses/:id/modules", c.course.ListModules)
	rg.GET("/courses/:id/grades/mine", c.grade.MyCourseGrades)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		// 课程
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.POST("/courses/:id/modules", c.course.CreateModule)
		teacher.GET("/courses/:id/grades", c.grade.ListCourseGrades)

		// 测评管理
		teacher.GET("/modules/:id/assessments", c.assessment.ListModuleAssessments)
		teacher.POST("/modules/:id/assessments", c.assessment.CreateAssessment)
		teacher.PUT("/assessments/:id", c.assessment.UpdateAssessment)
		teacher.DELETE("/assessments/:id", c.assessment.DeleteAssessment)

		// 题目管理
		teacher.POST("/assessments/:id/questions", c.assessment.AddQuestion)
		teacher.POST("/questions/media", c.media.UploadQuestionMedia)
		teacher.PUT("/questions/:id", c.assessment.UpdateQuestion)
		teacher.DELETE("/questions/:id", c.assessment.DeleteQuestion)

		// 评分
		teacher.GET("/assessments/:id/submissions", c.submission.ListSubmissionsForAssessment)
		teacher.POST("/submissions/:id/grade", c.submission.GradeSubmission)
	}
}
