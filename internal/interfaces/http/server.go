package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/infrastructure/websocket"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/handler"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/middleware"
	"github.com/pdfchat/pdfchat/internal/interfaces/mcp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router *gin.Engine
	addr   string
	server *http.Server
	logger *slog.Logger
}

// NewServer 创建 HTTP 服务器并注册路由
func NewServer(
	cfg *config.ServerConfig,
	documentHandler *handler.DocumentHandler,
	sessionHandler *handler.SessionHandler,
	searchHandler *handler.SearchHandler,
	streamHandler *handler.StreamHandler,
	hub *websocket.Hub,
	mcpServer *mcp.MCPServer,
) *HTTPServer {
	logger := log.NewModuleLogger("http", "server")

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(logger), middleware.EnsureUTF8Body())

	api := router.Group("/api/v1")
	{
		api.POST("/documents", documentHandler.Upload)
		api.GET("/documents", documentHandler.List)
		api.DELETE("/documents/:name", documentHandler.Remove)
		api.GET("/stats", documentHandler.Stats)
		api.DELETE("/data", documentHandler.ClearAll)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.GET("", sessionHandler.List)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.DELETE("/:id", sessionHandler.Delete)
			sessions.POST("/:id/messages", sessionHandler.Ask)
			sessions.GET("/:id/stream", streamHandler.Stream)
		}

		api.GET("/search", searchHandler.Search)

		// 索引事件推送
		if hub != nil {
			api.GET("/events", gin.WrapF(hub.ServeWS))
		}
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router: router,
		addr:   cfg.Addr,
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler 返回路由，便于测试直接调用
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Addr 配置的监听地址
func (s *HTTPServer) Addr() string {
	return s.addr
}

// Serve 在给定 listener 上提供服务，直到 Shutdown
func (s *HTTPServer) Serve(listener net.Listener) error {
	s.logger.Info("HTTP server starting",
		"addr", listener.Addr().String(),
	)

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
