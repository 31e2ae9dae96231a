package controller

import (
	"net/http"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 题目媒体上限 20MB
const maxMediaSize = 20 << 20

type MediaController struct {
	StorageService *service.StorageService
	Log            *zap.Logger
}

func NewMediaController(storageService *service.StorageService, log *zap.Logger) *MediaController {
	return &MediaController{StorageService: storageService, Log: log}
}

// @Summary 上传题目媒体
// @Description 返回的 url 填入题目的 media_url
// @Tags 题目
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "图片、音频、视频或 PDF"
// @Success 201 {object} util.Response
// @Router /api/teacher/questions/media [post]
func (c *MediaController) UploadQuestionMedia(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if fileHeader.Size > maxMediaSize {
		util.Error(ctx, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	defer file.Close()

	url, err := c.StorageService.UploadQuestionMedia(ctx.Request.Context(), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		util.HandleError(ctx, c.Log, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
