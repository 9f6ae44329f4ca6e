package events

// Handler 事件处理器
// 返回的错误只记录日志，不会重试
type Handler interface {
	HandleEvent(event Event) error
}

// HandlerFunc 函数适配器
type HandlerFunc func(event Event) error

// HandleEvent 实现 Handler 接口
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// Publisher 只负责发布事件的一侧
type Publisher interface {
	Publish(event Event)
}

// EventBus 进程内事件总线
type EventBus interface {
	Publisher

	// Subscribe 订阅一种事件，返回取消订阅函数
	Subscribe(eventType EventType, handler Handler) (unsubscribe func())

	// SubscribeMultiple 订阅多种事件，返回取消全部订阅的函数
	SubscribeMultiple(eventTypes []EventType, handler Handler) (unsubscribe func())

	// Close 停止接收新事件，并等待已发布事件处理完成
	Close()
}
