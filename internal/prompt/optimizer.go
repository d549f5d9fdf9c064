// Package prompt 提示词优化与创意灵感
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bihua-university/dreamcanvas/internal/dashscope"
)

// Model 对话模型
type Model interface {
	Complete(ctx context.Context, messages []dashscope.Message) (string, error)
	Stream(ctx context.Context, messages []dashscope.Message, onDelta func(string)) (string, error)
}

const optimizeTemplate = `我需要你帮我优化以下中文提示词，用于AI图像生成。
请生成一个详细、富有创意、高质量的中文图像描述，包括构图、风格、光照、颜色、情绪等元素。
仅输出优化后的中文提示词，不要翻译成英文，也不要有其他解释。
原始提示词: "%s"`

// FallbackPrompt 模型不可用时使用的提示词
func FallbackPrompt(prompt string) string {
	return fmt.Sprintf("高质量图像: %s, 风格写实, 光线明亮, 增强细节, 4K分辨率", prompt)
}

// Optimizer 调用对话模型扩写用户提示词
type Optimizer struct {
	model  Model
	logger *slog.Logger
	cache  *expirable.LRU[string, string]
}

func NewOptimizer(model Model, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		model:  model,
		logger: logger,
		cache:  expirable.NewLRU[string, string](256, nil, 30*time.Minute),
	}
}

// Optimize 返回优化后的提示词；模型失败或返回空内容时返回 FallbackPrompt，ok 为 false
//
// onDelta receives streamed fragments and may be nil. Cached answers are
// returned without streaming.
func (o *Optimizer) Optimize(ctx context.Context, prompt string, onDelta func(string)) (optimized string, ok bool) {
	prompt = strings.TrimSpace(prompt)
	if v, hit := o.cache.Get(prompt); hit {
		o.logger.Debug("提示词命中缓存", "prompt", prompt)
		return v, true
	}

	o.logger.Info("开始优化提示词", "prompt", prompt)
	start := time.Now()
	out, err := o.model.Stream(ctx, []dashscope.Message{
		dashscope.User(fmt.Sprintf(optimizeTemplate, prompt)),
	}, onDelta)
	out = strings.TrimSpace(out)
	if err == nil && out == "" {
		err = fmt.Errorf("模型返回了空响应")
	}
	if err != nil {
		fallback := FallbackPrompt(prompt)
		o.logger.Warn("提示词优化失败，使用备选提示词", "error", err, "fallback", fallback)
		return fallback, false
	}

	o.logger.Info("提示词优化完成", "optimized", out, "elapsed", time.Since(start))
	o.cache.Add(prompt, out)
	return out, true
}
