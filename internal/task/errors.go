package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyPrompt 提交的请求没有提示词
	ErrEmptyPrompt = errors.New("提示词不能为空")
	// ErrTerminal 任务已处于终止状态
	ErrTerminal = errors.New("任务已结束")
)

// SubmissionError 创建任务失败
type SubmissionError struct {
	StatusCode int    // 0 when the request never got a response
	Code       string // provider error code
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	msg := "任务创建失败"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": 状态码=%d", e.StatusCode)
	}
	if e.Code != "" {
		msg += ", " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Temporary reports whether resubmitting may succeed.
func (e *SubmissionError) Temporary() bool {
	if errors.Is(e.Err, ErrEmptyPrompt) ||
		errors.Is(e.Err, context.Canceled) ||
		errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// ProviderUnavailableError 状态查询本身失败
type ProviderUnavailableError struct {
	TaskID  string
	Attempt int
	Err     error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("查询任务状态失败 (任务 %s, 第%d次): %v", e.TaskID, e.Attempt, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// TaskFailedError 远端报告任务失败
type TaskFailedError struct {
	TaskID string
	Detail json.RawMessage
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("任务 %s 执行失败: %s", e.TaskID, string(e.Detail))
}

// EmptyResultError 远端报告成功但没有任何结果
type EmptyResultError struct {
	TaskID string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("任务 %s 成功但没有返回结果", e.TaskID)
}

// TaskTimeoutError 超过最大尝试次数仍未结束
type TaskTimeoutError struct {
	TaskID  string
	Attempt int
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("超过最大尝试次数(%d)，任务 %s 未完成", e.Attempt, e.TaskID)
}

// CanceledError 调用方取消了等待
type CanceledError struct {
	TaskID  string
	Attempt int
	Err     error
}

func (e *CanceledError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("任务创建被取消: %v", e.Err)
	}
	return fmt.Sprintf("等待任务 %s 被取消 (已查询%d次): %v", e.TaskID, e.Attempt, e.Err)
}

func (e *CanceledError) Unwrap() error { return e.Err }
