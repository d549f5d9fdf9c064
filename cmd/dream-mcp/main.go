// dream-mcp 以 MCP stdio 工具的形式提供图像生成与创意提示
package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bihua-university/dreamcanvas/internal/base"
	"github.com/bihua-university/dreamcanvas/internal/studio"
)

const version = "0.1.0"

func main() {
	base.InitConfig()
	// stdout 被 MCP 协议占用，日志写到 stderr
	logger := base.NewLogger(os.Stderr, base.Config.Debug)

	if v := base.Config.Validate(); !v.OK() {
		logger.Warn("缺少必要的配置，工具调用可能失败", "missing", v.Missing)
	}

	st := studio.FromConfig(context.Background(), base.Config, logger)
	defer st.Close()

	s := newServer(st, logger)
	logger.Info("MCP 服务启动", "version", version)
	if err := server.ServeStdio(s); err != nil {
		logger.Error("MCP 服务异常退出", "error", err)
		os.Exit(1)
	}
}
