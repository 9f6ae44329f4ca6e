package watcher

import (
	"github.com/google/wire"

	"github.com/pdfchat/pdfchat/internal/domain/events"
)

// ProviderSet 监听与事件总线提供者
var ProviderSet = wire.NewSet(
	ProvideEventBus,
	wire.Bind(new(events.Publisher), new(events.EventBus)),
)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() (events.EventBus, func()) {
	bus := NewEventBus()
	return bus, bus.Close
}
