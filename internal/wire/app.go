package wire

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	appDocument "github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/workspace"
	"github.com/pdfchat/pdfchat/internal/domain/events"
	applog "github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/infrastructure/websocket"
	"github.com/pdfchat/pdfchat/internal/interfaces"
)

const shutdownTimeout = 5 * time.Second

// App 应用主结构，组合所有服务
type App struct {
	Workspace    *workspace.Manager
	HTTPServer   *interfaces.HTTPServer
	MCPServer    *interfaces.MCPServer
	WatchService *appDocument.WatchService

	wsHub       *websocket.Hub
	eventBus    events.EventBus
	unsubscribe func()
	logger      *slog.Logger
}

// NewApp 创建应用实例，索引事件经事件总线推送给 WebSocket 订阅者
func NewApp(
	ws *workspace.Manager,
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	watchService *appDocument.WatchService,
	wsHub *websocket.Hub,
	eventBus events.EventBus,
) *App {
	app := &App{
		Workspace:    ws,
		HTTPServer:   httpServer,
		MCPServer:    mcpServer,
		WatchService: watchService,
		wsHub:        wsHub,
		eventBus:     eventBus,
		logger:       applog.NewModuleLogger("app", "main"),
	}
	app.setupEventSubscribers()
	return app
}

// setupEventSubscribers 注册事件订阅者
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil || a.wsHub == nil {
		return
	}
	a.unsubscribe = a.eventBus.SubscribeMultiple(
		[]events.EventType{events.DocumentIndexed, events.DocumentRemoved},
		a.wsHub,
	)
}

// Serve 在 listener 上提供 HTTP/WebSocket/MCP-SSE 服务，直到 ctx 取消
func (a *App) Serve(ctx context.Context, listener net.Listener) error {
	a.logger.Info("Starting server", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Error("Failed to stop HTTP server", "error", err)
		return err
	}
	a.logger.Info("Server stopped")
	return <-errCh
}

// RunMCP 通过标准输入输出提供 MCP 服务
func (a *App) RunMCP(ctx context.Context) error {
	return a.MCPServer.RunStdio(ctx)
}

// Watch 监听目录并自动索引其中的 PDF
func (a *App) Watch(ctx context.Context, dir string) error {
	return a.WatchService.Run(ctx, dir)
}

// Close 取消事件订阅，其余资源由 InitializeApp 返回的清理函数释放
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}
