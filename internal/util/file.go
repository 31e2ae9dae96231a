package util

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// 题目媒体允许的 MIME 前缀
var AllowedMediaMimeTypes = []string{"image/", "audio/", "video/", "application/pdf"}

// ValidateMimeType 深度校验文件 MIME 类型
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "image/", "video/", "application/pdf"
func ValidateMimeType(reader io.Reader, allowedTypes []string) (string, error) {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	mimeType := http.DetectContentType(buffer[:n])

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// MediaExtension returns the lower-cased extension of filename if it is an
// accepted question media type.
func MediaExtension(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedMediaExtensions {
		if ext == allowed {
			return ext, true
		}
	}
	return ext, false
}
