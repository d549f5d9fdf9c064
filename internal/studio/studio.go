// Package studio 图像生成流程：优化提示词、提交任务、轮询、转存、保存记录
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bihua-university/dreamcanvas/internal/archive"
	"github.com/bihua-university/dreamcanvas/internal/dashscope"
	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/task"
)

const DefaultAspectRatio = "1:1"

// GenerateRequest 生成请求
type GenerateRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio,omitempty"`
	UserID      string `json:"userId,omitempty"`
	BoardName   string `json:"boardName,omitempty"`
}

// Creation 生成结果
type Creation struct {
	ID              string    `json:"id"`
	Prompt          string    `json:"prompt"`
	OptimizedPrompt string    `json:"optimizedPrompt"`
	Images          []string  `json:"images"`
	BoardName       string    `json:"boardName"`
	AspectRatio     string    `json:"aspectRatio"`
	TaskID          string    `json:"taskId,omitempty"`
	Fallback        bool      `json:"fallback"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Observer 接收生成过程中的事件，字段均可为空
type Observer struct {
	Delta     func(fragment string)
	Optimized func(optimized string)
	Progress  task.Watcher
}

// Placeholders 生成失败且开启 image.fallback 时返回的占位图
var Placeholders = []string{
	"https://picsum.photos/seed/fallback1/512/512",
	"https://picsum.photos/seed/fallback2/512/512",
	"https://picsum.photos/seed/fallback3/512/512",
	"https://picsum.photos/seed/fallback4/512/512",
}

type Studio struct {
	Optimizer    *prompt.Optimizer
	Brainstormer *prompt.Brainstormer
	Poller       *task.Poller
	Store        *store.Store
	Archiver     *archive.Archiver

	Count    int  // images per task
	Fallback bool // placeholder images instead of an error

	logger *slog.Logger
}

func New(optimizer *prompt.Optimizer, brainstormer *prompt.Brainstormer, poller *task.Poller, logger *slog.Logger) *Studio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Studio{
		Optimizer:    optimizer,
		Brainstormer: brainstormer,
		Poller:       poller,
		Count:        dashscope.DefaultCount,
		logger:       logger,
	}
}

// DefaultBoardName 取提示词的前两个词并转为大写
func DefaultBoardName(p string) string {
	words := strings.Fields(p)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.ToUpper(strings.Join(words, " "))
}

// Generate 执行完整的生成流程
//
// Persistence and archive failures are logged and do not fail the call.
func (s *Studio) Generate(ctx context.Context, req GenerateRequest, obs Observer) (*Creation, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return nil, task.ErrEmptyPrompt
	}
	if req.AspectRatio == "" {
		req.AspectRatio = DefaultAspectRatio
	}
	size, known := dashscope.SizeForAspect(req.AspectRatio)
	if !known {
		s.logger.Warn("不支持的宽高比，使用默认尺寸", "aspect_ratio", req.AspectRatio, "size", size)
		req.AspectRatio = DefaultAspectRatio
	}
	if req.BoardName == "" {
		req.BoardName = DefaultBoardName(req.Prompt)
	}

	s.logger.Info("开始新的图像生成请求", "prompt", req.Prompt, "aspect_ratio", req.AspectRatio, "user_id", req.UserID)
	optimized, _ := s.Optimizer.Optimize(ctx, req.Prompt, obs.Delta)
	if obs.Optimized != nil {
		obs.Optimized(optimized)
	}

	c := &Creation{
		ID:              uuid.NewString(),
		Prompt:          req.Prompt,
		OptimizedPrompt: optimized,
		BoardName:       req.BoardName,
		AspectRatio:     req.AspectRatio,
		CreatedAt:       time.Now(),
	}

	t, err := s.Poller.Run(ctx, task.Request{Prompt: optimized, Size: size, Count: s.Count}, obs.Progress)
	if t != nil {
		c.TaskID = t.ID
	}
	if err != nil {
		var canceled *task.CanceledError
		if !s.Fallback || errors.As(err, &canceled) || ctx.Err() != nil {
			return nil, fmt.Errorf("图像生成失败: %w", err)
		}
		s.logger.Warn("图像生成失败，使用占位图", "error", err)
		c.Images = append([]string(nil), Placeholders...)
		c.Fallback = true
		return c, nil
	}

	c.Images = t.Result
	if archived, err := s.Archiver.Archive(ctx, c.ID, t.Result); err != nil {
		s.logger.Warn("图片转存失败，返回原始地址", "id", c.ID, "error", err)
	} else {
		c.Images = archived
	}

	s.save(ctx, req, c, size)
	s.logger.Info("图像生成请求完成", "id", c.ID, "task_id", c.TaskID, "images", len(c.Images))
	return c, nil
}

func (s *Studio) save(ctx context.Context, req GenerateRequest, c *Creation, size string) {
	width, height := dimensions(size)
	err := s.Store.Save(ctx, &store.Image{
		ID:              c.ID,
		UserID:          req.UserID,
		Prompt:          c.Prompt,
		OptimizedPrompt: c.OptimizedPrompt,
		ImageURLs:       c.Images,
		BoardName:       c.BoardName,
		AspectRatio:     c.AspectRatio,
		Width:           width,
		Height:          height,
		Format:          "png",
		TaskID:          c.TaskID,
		CreatedAt:       c.CreatedAt,
	})
	if err != nil {
		s.logger.Error("数据库存储失败，但图像生成成功", "id", c.ID, "error", err)
	}
}

func dimensions(size string) (int, int) {
	w, h, ok := strings.Cut(size, "*")
	if !ok {
		return 0, 0
	}
	width, _ := strconv.Atoi(w)
	height, _ := strconv.Atoi(h)
	return width, height
}

// Brainstorm 生成创意提示
func (s *Studio) Brainstorm(ctx context.Context, category string, count int) ([]prompt.Idea, bool, error) {
	c, err := prompt.ParseCategory(category)
	if err != nil {
		return nil, false, err
	}
	return s.Brainstormer.Generate(ctx, c, count)
}

func (s *Studio) Image(ctx context.Context, id string) (*store.Image, error) {
	return s.Store.ByID(ctx, id)
}

func (s *Studio) UserImages(ctx context.Context, userID string) ([]store.Image, error) {
	return s.Store.ByUser(ctx, userID)
}

// DBConnected 数据库是否可用
func (s *Studio) DBConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Store.Ping(ctx) == nil
}
