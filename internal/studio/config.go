package studio

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/bihua-university/dreamcanvas/internal/archive"
	"github.com/bihua-university/dreamcanvas/internal/base"
	"github.com/bihua-university/dreamcanvas/internal/dashscope"
	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/retry"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/task"
)

// FromConfig 按配置组装所有组件
//
// Database and object storage are optional; when they cannot be set up the
// studio runs without them and logs why.
func FromConfig(ctx context.Context, c base.Settings, logger *slog.Logger) *Studio {
	chat := dashscope.NewChat(c.ChatAPIKey, c.ChatBaseURL, c.HTTPTimeout)
	if c.ChatModel != "" {
		chat.Model = c.ChatModel
	}

	image := dashscope.NewImageSynthesis(c.ImageAPIKey, c.ImageBaseURL, c.HTTPTimeout)
	if c.ImageModel != "" {
		image.Model = c.ImageModel
	}

	poller := task.NewPoller(image, logger.With("component", "poller"))
	if c.PollInterval > 0 {
		poller.Interval = c.PollInterval
	}
	if c.MaxAttempts > 0 {
		poller.MaxAttempts = c.MaxAttempts
	}
	if c.SubmitRetries > 0 {
		poller.SubmitPolicy = retry.Exponential{
			Base:    c.SubmitBackoff,
			Max:     10 * time.Second,
			Retries: c.SubmitRetries,
		}
	}

	s := New(
		prompt.NewOptimizer(chat, logger.With("component", "optimizer")),
		prompt.NewBrainstormer(chat, logger.With("component", "brainstorm")),
		poller,
		logger,
	)
	if c.ImageCount > 0 {
		s.Count = c.ImageCount
	}
	s.Fallback = c.ImageFallback

	if c.Pgsql != "" {
		st, err := store.Open(c.Pgsql, os.Stderr)
		if err != nil {
			logger.Error("数据库连接失败，生成记录不会被保存", "error", err)
		} else {
			s.Store = st
			logger.Info("数据库初始化完成")
		}
	}

	u, err := archive.NewUploader(ctx, c)
	if err != nil {
		logger.Error("对象存储初始化失败，图片不会被转存", "error", err)
	} else if u != nil {
		s.Archiver = archive.New(u, logger.With("component", "archive"))
		logger.Info("对象存储初始化完成", "type", c.StorageType)
	}
	return s
}

func (s *Studio) Close() error {
	return s.Store.Close()
}
