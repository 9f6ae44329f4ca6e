package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// pingInterval 心跳间隔
	pingInterval = 30 * time.Second
	// pongWait 超过该时间没有任何消息则断开
	pongWait = 2 * pingInterval
	// writeWait 单次写超时
	writeWait = 10 * time.Second
)

// Upgrader 本机服务允许所有来源
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS 升级连接并订阅 Hub 广播，直到客户端断开
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade websocket", "error", err)
		return
	}

	conn := NewConnection()
	h.Register(conn)

	readDone := make(chan struct{})
	go h.readPump(ws, readDone)
	h.writePump(ws, conn, readDone)

	h.Unregister(conn)
	_ = ws.Close()
}

// readPump 只处理控制帧与关闭，订阅者不发送业务消息
func (h *Hub) readPump(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	ws.SetReadLimit(4 * 1024)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Websocket subscriber read error", "error", err)
			}
			return
		}
	}
}

// writePump 发送广播与心跳，连接关闭或读端退出时返回
func (h *Hub) writePump(ws *websocket.Conn, conn *Connection, readDone <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case message, ok := <-conn.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Debug("Failed to write websocket message", "error", err)
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
