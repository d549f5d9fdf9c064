package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/studio"
	"github.com/bihua-university/dreamcanvas/internal/task"
)

const (
	toolGenerate   = "generate_image"
	toolBrainstorm = "brainstorm_prompts"
	toolCategories = "list_categories"
)

// Service 工具背后的生成服务，由 studio.Studio 实现
type Service interface {
	Generate(ctx context.Context, req studio.GenerateRequest, obs studio.Observer) (*studio.Creation, error)
	Brainstorm(ctx context.Context, category string, count int) ([]prompt.Idea, bool, error)
}

type tools struct {
	svc    Service
	logger *slog.Logger
}

func newServer(svc Service, logger *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"dreamcanvas",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	t := &tools{svc: svc, logger: logger}

	s.AddTool(mcp.NewTool(toolGenerate,
		mcp.WithDescription("Optimize a prompt and generate images with the text-to-image model. Returns image URLs."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("What to draw, in Chinese or English"),
		),
		mcp.WithString("aspect_ratio",
			mcp.Description("One of 1:1, 16:9, 9:16, 4:3, 3:4 (default 1:1)"),
		),
		mcp.WithString("board_name",
			mcp.Description("Board to file the images under"),
		),
	), t.generate)

	s.AddTool(mcp.NewTool(toolBrainstorm,
		mcp.WithDescription("Suggest creative image prompts for a category"),
		mcp.WithString("category",
			mcp.Required(),
			mcp.Description("landscapes, characters, abstract, animals, fantasy or scifi"),
		),
		mcp.WithNumber("count",
			mcp.Description("Number of prompts, 1-10 (default 4)"),
		),
	), t.brainstorm)

	s.AddTool(mcp.NewTool(toolCategories,
		mcp.WithDescription("List the brainstorm categories"),
	), t.categories)

	return s
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (t *tools) generate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := request.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	creation, err := t.svc.Generate(ctx, studio.GenerateRequest{
		Prompt:      p,
		AspectRatio: request.GetString("aspect_ratio", ""),
		BoardName:   request.GetString("board_name", ""),
	}, studio.Observer{Progress: t.progress(ctx, request)})
	if err != nil {
		t.logger.Error("generate_image 失败", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(creation)
}

// progress 客户端带了 progressToken 时转发任务进度
func (t *tools) progress(ctx context.Context, request mcp.CallToolRequest) task.Watcher {
	return func(tk task.Task) {
		t.logger.Debug("任务进度", "task_id", tk.ID, "status", tk.Status, "attempt", tk.Attempt)

		srv := server.ServerFromContext(ctx)
		if srv == nil || request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
			return
		}
		err := srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": request.Params.Meta.ProgressToken,
			"progress":      tk.Attempt,
			"message":       string(tk.Status),
		})
		if err != nil {
			t.logger.Debug("进度通知发送失败", "error", err)
		}
	}
}

func (t *tools) brainstorm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := request.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count := request.GetInt("count", prompt.DefaultCount)

	ideas, fallback, err := t.svc.Brainstorm(ctx, category, count)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"ideas": ideas, "fallback": fallback})
}

func (t *tools) categories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := make([]map[string]string, 0, len(prompt.Categories()))
	for _, c := range prompt.Categories() {
		list = append(list, map[string]string{"id": string(c), "displayName": c.DisplayName()})
	}
	return jsonResult(list)
}
