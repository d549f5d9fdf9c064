package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/studio"
)

var (
	accentColor = lipgloss.Color("#7D56F4")
	mutedColor  = lipgloss.Color("#6C6C6C")
	warnColor   = lipgloss.Color("#FFB86C")
	errorColor  = lipgloss.Color("#FF6B6B")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warnColor)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(errorColor)
	wrapStyle  = lipgloss.NewStyle().Width(72)
)

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
}

func renderCreation(w io.Writer, c *studio.Creation) {
	fmt.Fprintln(w, titleStyle.Render("✓ 图像生成完成"))
	if c.Fallback {
		fmt.Fprintln(w, warnStyle.Render("! 图像服务不可用，以下为占位图"))
	}
	field(w, "ID", c.ID)
	field(w, "画板", c.BoardName)
	field(w, "宽高比", c.AspectRatio)
	field(w, "任务", c.TaskID)
	field(w, "提示词", c.Prompt)
	if c.OptimizedPrompt != "" {
		fmt.Fprintln(w, labelStyle.Render("优化后:"))
		fmt.Fprintln(w, wrapStyle.Render(c.OptimizedPrompt))
	}
	renderURLs(w, c.Images)
}

func renderURLs(w io.Writer, urls []string) {
	for i, u := range urls {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", i+1)), u)
	}
}

func renderIdeas(w io.Writer, category string, ideas []prompt.Idea, fallback bool) {
	c, err := prompt.ParseCategory(category)
	name := category
	if err == nil {
		name = c.DisplayName()
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s 创意提示 (%d)", name, len(ideas))))
	if fallback {
		fmt.Fprintln(w, warnStyle.Render("! 模型不可用，使用预设提示"))
	}
	for i, idea := range ideas {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%d.", i+1)), idea.Description)
		if idea.PreviewPrompt != "" && idea.PreviewPrompt != idea.Description {
			fmt.Fprintf(w, "   %s\n", labelStyle.Render(idea.PreviewPrompt))
		}
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(labelStyle).
		Headers(headers...)
}

func renderCategories(w io.Writer, list []Category) error {
	t := newTable("ID", "NAME")
	for _, c := range list {
		t.Row(c.ID, c.DisplayName)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderImage(w io.Writer, image *store.Image) {
	fmt.Fprintln(w, titleStyle.Render(image.BoardName))
	field(w, "ID", image.ID)
	field(w, "用户", image.UserID)
	field(w, "尺寸", fmt.Sprintf("%dx%d %s (%s)", image.Width, image.Height, image.Format, image.AspectRatio))
	field(w, "创建时间", image.CreatedAt.Local().Format(time.DateTime))
	field(w, "提示词", image.Prompt)
	if image.OptimizedPrompt != "" {
		fmt.Fprintln(w, labelStyle.Render("优化后:"))
		fmt.Fprintln(w, wrapStyle.Render(image.OptimizedPrompt))
	}
	renderURLs(w, image.ImageURLs)
}

func renderImages(w io.Writer, images []store.Image) error {
	if len(images) == 0 {
		fmt.Fprintln(w, labelStyle.Render("暂无生成记录"))
		return nil
	}
	t := newTable("ID", "BOARD", "IMAGES", "CREATED", "PROMPT")
	for _, image := range images {
		t.Row(
			image.ID,
			image.BoardName,
			strconv.Itoa(len(image.ImageURLs)),
			image.CreatedAt.Local().Format(time.DateTime),
			truncate(image.Prompt, 32),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
