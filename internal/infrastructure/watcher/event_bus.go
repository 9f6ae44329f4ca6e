// Package watcher 提供 PDF 目录监听和进程内事件分发
package watcher

import (
	"log/slog"
	"sync"

	"github.com/pdfchat/pdfchat/internal/domain/events"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

type subscription struct {
	id      uint64
	handler events.Handler
}

// eventBusImpl EventBus 的实现，每个处理器在独立 goroutine 中执行
type eventBusImpl struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]subscription
	nextID   uint64
	closed   bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

var _ events.EventBus = (*eventBusImpl)(nil)

// NewEventBus 创建事件总线
func NewEventBus() events.EventBus {
	return &eventBusImpl{
		handlers: make(map[events.EventType][]subscription),
		logger:   log.NewModuleLogger("watcher", "event_bus"),
	}
}

// Subscribe 订阅特定类型的事件
func (b *eventBusImpl) Subscribe(eventType events.EventType, handler events.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, id) })
	}
}

// SubscribeMultiple 订阅多个类型的事件
func (b *eventBusImpl) SubscribeMultiple(eventTypes []events.EventType, handler events.Handler) func() {
	unsubscribers := make([]func(), 0, len(eventTypes))
	for _, eventType := range eventTypes {
		unsubscribers = append(unsubscribers, b.Subscribe(eventType, handler))
	}
	return func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}
}

func (b *eventBusImpl) unsubscribe(eventType events.EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish 异步发布事件
func (b *eventBusImpl) Publish(event events.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := append([]subscription(nil), b.handlers[event.Type()]...)
	// 在读锁内登记，Close 等待时不会漏掉
	b.wg.Add(len(subs))
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	b.logger.Debug("Publishing event",
		"type", event.Type(),
		"handlers_count", len(subs),
	)
	for _, s := range subs {
		go b.dispatch(event, s.handler)
	}
}

func (b *eventBusImpl) dispatch(event events.Event, handler events.Handler) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				"type", event.Type(),
				"panic", r,
			)
		}
	}()

	if err := handler.HandleEvent(event); err != nil {
		b.logger.Warn("Handler returned error",
			"type", event.Type(),
			"error", err,
		)
	}
}

// Close 关闭事件总线
func (b *eventBusImpl) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Debug("Event bus closed")
}
