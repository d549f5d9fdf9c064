package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/task"
)

// StatusClientClosedRequest 客户端在任务完成前断开
const StatusClientClosedRequest = 499

// AppError 返回给客户端的错误
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// toAppError 将内部错误转换为 HTTP 状态码与提示信息
func toAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}

	switch {
	case errors.Is(err, task.ErrEmptyPrompt):
		return &AppError{http.StatusBadRequest, "提示词不能为空", err}
	case errors.Is(err, prompt.ErrUnknownCategory):
		return &AppError{http.StatusBadRequest, "无效的类别", err}
	case errors.Is(err, prompt.ErrInvalidCount):
		return &AppError{http.StatusBadRequest, "提示数量必须在1-10之间", err}
	case errors.Is(err, store.ErrNotFound):
		return &AppError{http.StatusNotFound, "图像不存在", err}
	case errors.Is(err, store.ErrUnavailable):
		return &AppError{http.StatusServiceUnavailable, "数据库未连接", err}
	}

	var (
		submission *task.SubmissionError
		timeout    *task.TaskTimeoutError
		canceled   *task.CanceledError
		failed     *task.TaskFailedError
		empty      *task.EmptyResultError
		down       *task.ProviderUnavailableError
	)
	switch {
	case errors.As(err, &submission):
		if submission.StatusCode == http.StatusBadRequest {
			return &AppError{http.StatusBadRequest, "图像生成请求被拒绝", err}
		}
		return &AppError{http.StatusBadGateway, "图像生成任务创建失败", err}
	case errors.As(err, &timeout):
		return &AppError{http.StatusGatewayTimeout, "图像生成超时", err}
	case errors.As(err, &canceled):
		return &AppError{StatusClientClosedRequest, "请求已取消", err}
	case errors.As(err, &failed), errors.As(err, &empty), errors.As(err, &down):
		return &AppError{http.StatusBadGateway, "图像生成失败", err}
	}
	return &AppError{http.StatusInternalServerError, "服务器内部错误", err}
}

func errorBody(ae *AppError) gin.H {
	h := gin.H{"success": false, "message": ae.Message}
	if ae.Err != nil {
		h["error"] = ae.Err.Error()
	}
	return h
}

func abort(c *gin.Context, err error) {
	ae := toAppError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(ae.Status, errorBody(ae))
}
