package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bihua-university/dreamcanvas/internal/dashscope"
)

type Category string

const (
	Landscapes Category = "landscapes"
	Characters Category = "characters"
	Abstract   Category = "abstract"
	Animals    Category = "animals"
	Fantasy    Category = "fantasy"
	SciFi      Category = "scifi"
)

var categories = []Category{Landscapes, Characters, Abstract, Animals, Fantasy, SciFi}

var displayNames = map[Category]string{
	Landscapes: "风景",
	Characters: "人物",
	Abstract:   "抽象",
	Animals:    "动物",
	Fantasy:    "奇幻",
	SciFi:      "科幻",
}

// Categories 所有类别，顺序固定
func Categories() []Category {
	return append([]Category(nil), categories...)
}

func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return "未知类别"
}

var (
	ErrUnknownCategory = errors.New("无效的类别")
	ErrInvalidCount    = fmt.Errorf("数量必须在%d到%d之间", MinCount, MaxCount)
)

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

const (
	MinCount     = 1
	MaxCount     = 10
	DefaultCount = 4
)

// Idea 一条创意提示
type Idea struct {
	Description   string `json:"description"`
	PreviewPrompt string `json:"previewPrompt,omitempty"`
}

const brainstormSystem = "你是一个创意提示生成器，专门为AI图像生成提供高质量的创意提示词。"

const brainstormTemplate = `请为我生成%d个关于"%s"的创意图像提示词。
每个提示词应该是一个详细的中文描述，包含构图、风格、光照、色彩、情绪等元素。
提示词应该有创意、独特并且容易想象。
返回格式必须是严格的JSON数组，每个元素包含description字段，例如：
[
  {"description": "提示词描述1"},
  {"description": "提示词描述2"}
]
只返回这个JSON数组，不要有其他任何解释或说明。`

// Brainstormer 按类别生成创意提示
type Brainstormer struct {
	model  Model
	logger *slog.Logger
}

func NewBrainstormer(model Model, logger *slog.Logger) *Brainstormer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Brainstormer{model: model, logger: logger}
}

// Generate 生成 count 条创意提示
//
// Invalid arguments are errors. Model or parse failures are logged and
// answered with the built-in ideas for the category, with fallback set.
func (b *Brainstormer) Generate(ctx context.Context, c Category, count int) (ideas []Idea, fallback bool, err error) {
	if _, ok := displayNames[c]; !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	if count < MinCount || count > MaxCount {
		return nil, false, ErrInvalidCount
	}

	b.logger.Info("开始生成创意提示", "category", c, "count", count)
	content, err := b.model.Complete(ctx, []dashscope.Message{
		dashscope.System(brainstormSystem),
		dashscope.User(fmt.Sprintf(brainstormTemplate, count, c.DisplayName())),
	})
	if err == nil {
		ideas, err = ParseIdeas(content)
	}
	if err != nil {
		b.logger.Warn("创意提示生成失败，使用备选提示词", "category", c, "error", err)
		return Fallbacks(c, count), true, nil
	}

	if len(ideas) > count {
		ideas = ideas[:count]
	}
	b.logger.Info("创意提示生成完成", "category", c, "count", len(ideas))
	return ideas, false, nil
}

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fenced     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	bareArray  = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
)

// extractJSON pulls the JSON array out of a reply that may wrap it in a
// markdown code fence or surrounding prose.
func extractJSON(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if m := fenced.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	if m := bareArray.FindString(content); m != "" {
		return m
	}
	return strings.TrimSpace(content)
}

// ParseIdeas 解析模型返回的 JSON 数组
func ParseIdeas(content string) ([]Idea, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("模型返回了空响应")
	}
	raw := extractJSON(content)
	if !gjson.Valid(raw) {
		return nil, errors.New("无法解析模型响应为有效的JSON")
	}
	arr := gjson.Parse(raw)
	if !arr.IsArray() {
		return nil, errors.New("响应不是数组格式")
	}

	var ideas []Idea
	for _, item := range arr.Array() {
		desc := strings.TrimSpace(item.Get("description").String())
		if desc == "" {
			continue
		}
		preview := strings.TrimSpace(item.Get("previewPrompt").String())
		if preview == "" {
			preview = firstSentence(desc)
		}
		ideas = append(ideas, Idea{Description: desc, PreviewPrompt: preview})
	}
	if len(ideas) == 0 {
		return nil, errors.New("响应中没有有效的提示词")
	}
	return ideas, nil
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".。"); i > 0 {
		return s[:i]
	}
	return s
}
