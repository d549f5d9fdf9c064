package task

import (
	"context"
	"encoding/json"
)

// Request 描述一次提交给远端的异步任务
type Request struct {
	Prompt string         `json:"prompt"`
	Size   string         `json:"size,omitempty"` // e.g. 1024*1024
	Count  int            `json:"n,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Task 表示一个进行中的远端异步任务，仅存在于发起请求的生命周期内
type Task struct {
	ID            string          `json:"taskId"`
	Status        Status          `json:"status"`
	Attempt       int             `json:"attempt"`
	Result        []string        `json:"result,omitempty"`
	FailureDetail json.RawMessage `json:"failureDetail,omitempty"`
}

// Terminal reports whether no further transition can leave the current status.
func (t *Task) Terminal() bool {
	return t.Status.Terminal()
}

// Report 是一次状态查询的原始结果
type Report struct {
	Status  string          // provider status code, unmapped
	Results []string        // result references in provider order
	Detail  json.RawMessage // provider diagnostic payload
}

// Provider 是执行异步任务的远端服务
//
// Create returns the provider issued task id. Check performs exactly one
// status query; an error means the query itself failed (transport or a
// response that could not be read), not that the task failed.
type Provider interface {
	Create(ctx context.Context, req Request) (string, error)
	Check(ctx context.Context, taskID string) (*Report, error)
}

// Watcher 在每次轮询后收到任务快照
type Watcher func(Task)
