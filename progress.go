package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/studio"
	"github.com/bihua-university/dreamcanvas/internal/task"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

var route = map[string]func(*Context){
	"/image/generate": generateImage,
	"/brainstorm":     brainstormIdeas,
}

// progress GET /api/images/ws
//
// Every message is {"action": ..., "data": {...}} and is handled on its own
// goroutine; all handlers stop when the connection closes.
func (s *server) progress(c *gin.Context) {
	wc, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket 升级失败", "error", err)
		return
	}
	defer wc.Close()

	ip := maskIP(c.Request.RemoteAddr)
	conn := newConnection(wc, ip)
	conn.Start()
	s.logger.Info("websocket 连接建立", "ip", ip)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		conn.Close()
	}()

	for {
		_, message, err := wc.ReadMessage()
		if err != nil {
			s.logger.Info("websocket 连接关闭", "ip", ip, "error", err)
			return
		}

		msg := gjson.ParseBytes(message)
		action := msg.Get("action").String()
		s.logger.Debug("收到消息", "action", action, "data", msg.Get("data").Raw)

		handler := route[action]
		if handler == nil {
			s.logger.Warn("unhandled message", "message", string(message))
			conn.Send(gin.H{"type": "error", "status": http.StatusNotFound, "message": "未知的操作: " + action})
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handler(&Context{
				ctx:    ctx,
				conn:   conn,
				server: s,
				data:   msg.Get("data"),
			})
		}()
	}
}

func sendError(c *Context, err error) {
	ae := toAppError(err)
	c.conn.Send(gin.H{"type": "error", "status": ae.Status, "message": ae.Message, "error": err.Error()})
}

func generateImage(c *Context) {
	req := studio.GenerateRequest{
		Prompt:      c.Get("prompt").String(),
		AspectRatio: c.Get("aspectRatio").String(),
		UserID:      c.Get("userId").String(),
		BoardName:   c.Get("boardName").String(),
	}

	creation, err := c.server.svc.Generate(c.ctx, req, studio.Observer{
		Delta: func(fragment string) {
			c.conn.Send(gin.H{"type": "delta", "content": fragment})
		},
		Optimized: func(optimized string) {
			c.conn.Send(gin.H{"type": "optimized", "optimizedPrompt": optimized})
		},
		Progress: func(t task.Task) {
			c.conn.Send(gin.H{
				"type":        "progress",
				"taskId":      t.ID,
				"status":      t.Status,
				"attempt":     t.Attempt,
				"maxAttempts": c.server.maxAttempts,
			})
		},
	})
	if err != nil {
		c.server.logger.Error("图像生成失败", "error", err)
		sendError(c, err)
		return
	}
	c.conn.Send(gin.H{"type": "done", "data": creation})
}

func brainstormIdeas(c *Context) {
	count := int(c.Get("count").Int())
	if count == 0 {
		count = prompt.DefaultCount
	}
	ideas, fallback, err := c.server.svc.Brainstorm(c.ctx, c.Get("category").String(), count)
	if err != nil {
		sendError(c, err)
		return
	}
	c.conn.Send(gin.H{"type": "ideas", "data": ideas, "fallback": fallback})
}
