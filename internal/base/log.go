package base

import (
	"io"
	"log/slog"
)

// NewLogger 创建结构化日志，debug 为 true 时输出调试日志
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
