package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bihua-university/dreamcanvas/internal/base"
	"github.com/bihua-university/dreamcanvas/internal/prompt"
	"github.com/bihua-university/dreamcanvas/internal/store"
	"github.com/bihua-university/dreamcanvas/internal/studio"
)

// Service 生成服务，由 studio.Studio 实现
type Service interface {
	Generate(ctx context.Context, req studio.GenerateRequest, obs studio.Observer) (*studio.Creation, error)
	Brainstorm(ctx context.Context, category string, count int) ([]prompt.Idea, bool, error)
	Image(ctx context.Context, id string) (*store.Image, error)
	UserImages(ctx context.Context, userID string) ([]store.Image, error)
	DBConnected(ctx context.Context) bool
}

type server struct {
	svc         Service
	logger      *slog.Logger
	maxAttempts int // reported in websocket progress messages
}

func main() {
	base.InitConfig()
	logger := base.NewLogger(os.Stderr, base.Config.Debug)

	v := base.Config.Validate()
	if !v.OK() {
		logger.Warn("缺少必要的配置，应用可能无法正常工作", "missing", v.Missing)
	}
	for _, w := range v.Warnings {
		logger.Warn("配置警告: " + w)
	}
	logger.Info("配置加载完成", "config", base.Config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := studio.FromConfig(ctx, base.Config, logger)
	defer st.Close()

	if !base.Config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    base.Config.Addr,
		Handler: newRouter(&server{svc: st, logger: logger, maxAttempts: st.Poller.MaxAttempts}),
	}

	go func() {
		<-ctx.Done()
		logger.Info("收到退出信号，正在关闭...")
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("服务器启动", "addr", base.Config.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("服务器异常退出", "error", err)
		os.Exit(1)
	}
}

func newRouter(s *server) *gin.Engine {
	g := gin.New()
	g.Use(requestLogger(s.logger), gin.Recovery(), Cors())

	api := g.Group("/api")
	api.POST("/images", s.createImage)
	api.GET("/images/ws", s.progress)
	api.GET("/images/user/:userId", s.userImages)
	api.GET("/images/:id", s.getImage)
	api.GET("/brainstorm/categories", s.categories)
	api.GET("/brainstorm/:category", s.brainstorm)

	g.GET("/health", s.health)
	g.NoRoute(func(c *gin.Context) {
		abort(c, &AppError{Status: http.StatusNotFound, Message: "找不到路径: " + c.Request.URL.Path})
	})
	return g
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"dbConnected": s.svc.DBConnected(c.Request.Context()),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "token,content-type,accesstoken")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "请求完成",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", maskIP(c.Request.RemoteAddr),
			"elapsed", time.Since(start),
		)
	}
}

func maskIP(ip string) string {
	// 192.0.0.1:80 => 192.0.*.*
	ip = lastCut(ip, ":")
	ip = lastCut(ip, ".")
	ip = lastCut(ip, ".")
	return ip + ".*.*"
}

func lastCut(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}
