package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bihua-university/dreamcanvas/internal/retry"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 30
)

// Poller 提交异步任务并轮询直到结束
//
// A Poller holds no per-task state and may be shared by concurrent requests;
// each task is driven by its own sequential loop.
type Poller struct {
	Interval     time.Duration
	MaxAttempts  int
	SubmitPolicy retry.Policy // retries of the creation call only

	provider Provider
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewPoller 创建轮询器，默认每2秒查询一次，最多30次
func NewPoller(provider Provider, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		Interval:     DefaultInterval,
		MaxAttempts:  DefaultMaxAttempts,
		SubmitPolicy: retry.Never,
		provider:     provider,
		logger:       logger,
		sleep:        retry.Sleep,
	}
}

// Submit 创建远端任务，返回 PENDING 状态的 Task
func (p *Poller) Submit(ctx context.Context, req Request) (*Task, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &SubmissionError{Err: ErrEmptyPrompt}
	}
	if err := ctx.Err(); err != nil {
		return nil, &CanceledError{Err: err}
	}

	var id string
	err := retry.Do(ctx, p.SubmitPolicy, temporary, func(ctx context.Context) error {
		var err error
		id, err = p.provider.Create(ctx, req)
		if err != nil {
			p.logger.Warn("任务创建失败", "error", err)
			return err
		}
		if id == "" {
			return &SubmissionError{Message: "未返回有效的任务ID"}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Warn("创建任务时被取消", "error", err)
			return nil, &CanceledError{Err: ctx.Err()}
		}
		var se *SubmissionError
		if !errors.As(err, &se) {
			err = &SubmissionError{Err: err}
		}
		return nil, err
	}

	p.logger.Info("任务创建成功", "task_id", id)
	return &Task{ID: id, Status: StatusPending}, nil
}

func temporary(err error) bool {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Poll 查询一次任务状态
//
// The task's status mirrors the provider's code: a queued task stays
// PENDING until the provider reports RUNNING. Unknown codes count as RUNNING.
//
// The returned error is nil while the task is in flight or after it
// succeeded. A provider reported failure yields *TaskFailedError, success
// without results yields *EmptyResultError, and a failed query yields
// *ProviderUnavailableError.
func (p *Poller) Poll(ctx context.Context, t *Task) error {
	if t.Terminal() {
		return ErrTerminal
	}

	t.Attempt++
	report, err := p.provider.Check(ctx, t.ID)
	if err != nil {
		return &ProviderUnavailableError{TaskID: t.ID, Attempt: t.Attempt, Err: err}
	}

	status, known := ParseStatus(report.Status)
	if !known {
		p.logger.Warn("未知的任务状态，继续轮询",
			"task_id", t.ID,
			"status", report.Status,
			"attempt", t.Attempt,
		)
	}

	switch status {
	case StatusSucceeded:
		if len(report.Results) == 0 {
			t.Status = StatusFailed
			t.FailureDetail = report.Detail
			return &EmptyResultError{TaskID: t.ID}
		}
		t.Status = StatusSucceeded
		t.Result = report.Results
	case StatusFailed:
		t.Status = StatusFailed
		t.FailureDetail = report.Detail
		return &TaskFailedError{TaskID: t.ID, Detail: report.Detail}
	default:
		t.Status = status
	}
	return nil
}

// AwaitCompletion 按固定间隔轮询直到任务结束或用完 maxAttempts 次查询
func (p *Poller) AwaitCompletion(ctx context.Context, t *Task, interval time.Duration, maxAttempts int, watch Watcher) ([]string, error) {
	if t.Terminal() {
		if t.Status == StatusSucceeded {
			return t.Result, nil
		}
		return nil, ErrTerminal
	}

	for t.Attempt < maxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, p.cancel(t, err)
		}
		if err := p.sleep(ctx, interval); err != nil {
			return nil, p.cancel(t, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, p.cancel(t, err)
		}

		err := p.Poll(ctx, t)
		if watch != nil {
			watch(*t)
		}
		if err != nil {
			p.logger.Error("任务轮询结束", "task_id", t.ID, "attempt", t.Attempt, "error", err)
			return nil, err
		}
		if t.Status == StatusSucceeded {
			p.logger.Info("任务成功完成", "task_id", t.ID, "attempt", t.Attempt, "results", len(t.Result))
			return t.Result, nil
		}
		p.logger.Debug("任务处理中", "task_id", t.ID, "attempt", t.Attempt, "status", t.Status)
	}

	t.Status = StatusTimedOut
	if watch != nil {
		watch(*t)
	}
	p.logger.Error("超过最大尝试次数，任务未完成", "task_id", t.ID, "attempt", t.Attempt)
	return nil, &TaskTimeoutError{TaskID: t.ID, Attempt: t.Attempt}
}

func (p *Poller) cancel(t *Task, err error) error {
	t.Status = StatusCanceled
	p.logger.Warn("等待任务被取消", "task_id", t.ID, "attempt", t.Attempt, "error", err)
	return &CanceledError{TaskID: t.ID, Attempt: t.Attempt, Err: err}
}

// Run 提交任务并使用轮询器的默认间隔等待结果
func (p *Poller) Run(ctx context.Context, req Request, watch Watcher) (*Task, error) {
	t, err := p.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if watch != nil {
		watch(*t)
	}
	_, err = p.AwaitCompletion(ctx, t, p.Interval, p.MaxAttempts, watch)
	return t, err
}
