// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with `swag init -g main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["系统"], "summary": "健康检查", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}},
        "/assessments/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["测评"], "summary": "获取测评详情", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "view", "in": "query"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/assessments/{id}/submissions": {"post": {"security": [{"BearerAuth": []}], "tags": ["提交"], "summary": "开始作答", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/assessments/{id}/submissions/mine": {"get": {"security": [{"BearerAuth": []}], "tags": ["提交"], "summary": "我的提交记录", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/submissions/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["提交"], "summary": "获取提交详情", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}},
        "/submissions/{id}/answers/{questionId}": {"put": {"security": [{"BearerAuth": []}], "tags": ["提交"], "summary": "保存答案", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"type": "integer", "name": "questionId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/submissions/{id}/submit": {"post": {"security": [{"BearerAuth": []}], "tags": ["提交"], "summary": "提交测评", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/courses/{id}/modules": {"get": {"security": [{"BearerAuth": []}], "tags": ["课程"], "summary": "课程模块列表", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/courses/{id}/grades/mine": {"get": {"security": [{"BearerAuth": []}], "tags": ["成绩"], "summary": "我的课程成绩", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/teacher/courses": {"post": {"security": [{"BearerAuth": []}], "tags": ["课程"], "summary": "创建课程", "responses": {"201": {"description": "Created"}}}},
        "/teacher/courses/{id}/modules": {"post": {"security": [{"BearerAuth": []}], "tags": ["课程"], "summary": "创建模块", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}},
        "/teacher/courses/{id}/grades": {"get": {"security": [{"BearerAuth": []}], "tags": ["成绩"], "summary": "课程全部学生成绩", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/teacher/modules/{id}/assessments": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["测评"], "summary": "模块下的测评列表", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["测评"], "summary": "创建测评", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}
        },
        "/teacher/assessments/{id}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["测评"], "summary": "更新测评", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["测评"], "summary": "删除测评", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/teacher/assessments/{id}/questions": {"post": {"security": [{"BearerAuth": []}], "tags": ["题目"], "summary": "添加题目", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"201": {"description": "Created"}}}},
        "/teacher/questions/{id}": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["题目"], "summary": "更新题目", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["题目"], "summary": "删除题目", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/teacher/questions/media": {"post": {"security": [{"BearerAuth": []}], "consumes": ["multipart/form-data"], "tags": ["题目"], "summary": "上传题目媒体", "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"201": {"description": "Created"}}}},
        "/teacher/assessments/{id}/submissions": {"get": {"security": [{"BearerAuth": []}], "tags": ["评分"], "summary": "测评的全部提交", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "status", "in": "query"}, {"type": "integer", "name": "page", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/teacher/submissions/{id}/grade": {"post": {"security": [{"BearerAuth": []}], "tags": ["评分"], "summary": "人工评分", "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "LMS 测评与评分 API",
	Description:      "课程测评作答、自动评分与人工评分服务。",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
