package websocket

import "github.com/google/wire"

// ProviderSet WebSocket ProviderSet
var ProviderSet = wire.NewSet(
	ProvideHub,
)

// ProvideHub 创建并启动 Hub
func ProvideHub() (*Hub, func()) {
	hub := NewHub()
	hub.Start()
	return hub, hub.Stop
}
