package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pdfchat/pdfchat/internal/domain/events"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// sendBuffer 每个连接的待发送队列长度
const sendBuffer = 64

// Hub WebSocket 连接管理中心，把索引事件广播给所有订阅者
type Hub struct {
	clients    map[*Connection]bool
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	logger     *slog.Logger
}

// Connection 单个订阅连接
type Connection struct {
	Send chan []byte
}

// NewConnection 创建带发送缓冲的连接
func NewConnection() *Connection {
	return &Connection{Send: make(chan []byte, sendBuffer)}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		logger:     log.NewModuleLogger("websocket", "hub"),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行），Stop 后返回并关闭所有连接
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				close(conn.Send)
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(conn.Send)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				select {
				case conn.Send <- data:
				default:
					// 消费过慢的连接直接断开
					close(conn.Send)
					delete(h.clients, conn)
					h.logger.Warn("Dropping slow websocket subscriber")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Stop 停止 Hub，可重复调用
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register 注册连接，Hub 已停止时立即关闭连接
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister 注销连接
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast 序列化后广播给所有连接
func (h *Hub) Broadcast(data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- jsonData:
	case <-h.done:
	}
	return nil
}

// HandleEvent 实现 events.Handler，把事件总线上的索引事件转发给订阅者
func (h *Hub) HandleEvent(event events.Event) error {
	return h.Broadcast(event)
}
