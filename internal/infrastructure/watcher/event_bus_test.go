package watcher

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfchat/pdfchat/internal/domain/events"
)

func fileEvent(eventType events.EventType) *events.DocumentFileEvent {
	return &events.DocumentFileEvent{
		EventType: eventType,
		FilePath:  "/docs/report.pdf",
		EventTime: time.Now(),
	}
}

func TestEventBus_Subscribe(t *testing.T) {
	bus := NewEventBus()

	var received atomic.Bool
	unsub := bus.Subscribe(events.DocumentFileCreated, events.HandlerFunc(func(event events.Event) error {
		received.Store(true)
		return nil
	}))
	defer unsub()

	bus.Publish(fileEvent(events.DocumentFileCreated))
	bus.Close()

	assert.True(t, received.Load())
}

func TestEventBus_MultipleHandlers(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe(events.DocumentFileModified, events.HandlerFunc(func(event events.Event) error {
			count.Add(1)
			return nil
		}))
	}

	bus.Publish(fileEvent(events.DocumentFileModified))
	bus.Close()

	assert.Equal(t, int32(3), count.Load())
}

func TestEventBus_SubscribeMultiple(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	bus.SubscribeMultiple(
		[]events.EventType{events.DocumentFileCreated, events.DocumentFileModified},
		events.HandlerFunc(func(event events.Event) error {
			count.Add(1)
			return nil
		}),
	)

	bus.Publish(fileEvent(events.DocumentFileCreated))
	bus.Publish(fileEvent(events.DocumentFileModified))
	bus.Publish(fileEvent(events.DocumentFileDeleted))
	bus.Close()

	assert.Equal(t, int32(2), count.Load(), "未订阅的类型不会收到")
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()

	var first, second atomic.Int32
	unsubFirst := bus.Subscribe(events.DocumentIndexed, events.HandlerFunc(func(event events.Event) error {
		first.Add(1)
		return nil
	}))
	bus.Subscribe(events.DocumentIndexed, events.HandlerFunc(func(event events.Event) error {
		second.Add(1)
		return nil
	}))

	unsubFirst()
	unsubFirst()

	bus.Publish(&events.IndexEvent{EventType: events.DocumentIndexed, FileName: "a.pdf"})
	bus.Close()

	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestEventBus_HandlerFailures(t *testing.T) {
	tests := []struct {
		name    string
		failing events.HandlerFunc
	}{
		{"处理器返回错误", func(events.Event) error { return errors.New("handler error") }},
		{"处理器 panic", func(events.Event) error { panic("handler panic") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewEventBus()

			var ok atomic.Int32
			bus.Subscribe(events.DocumentFileCreated, tt.failing)
			bus.Subscribe(events.DocumentFileCreated, events.HandlerFunc(func(event events.Event) error {
				ok.Add(1)
				return nil
			}))

			require.NotPanics(t, func() {
				bus.Publish(fileEvent(events.DocumentFileCreated))
				bus.Close()
			})
			assert.Equal(t, int32(1), ok.Load(), "其他处理器不受影响")
		})
	}
}

func TestEventBus_CloseWaitsForHandlers(t *testing.T) {
	bus := NewEventBus()

	var done atomic.Bool
	bus.Subscribe(events.DocumentFileCreated, events.HandlerFunc(func(event events.Event) error {
		time.Sleep(100 * time.Millisecond)
		done.Store(true)
		return nil
	}))

	bus.Publish(fileEvent(events.DocumentFileCreated))
	bus.Close()

	assert.True(t, done.Load(), "Close 返回前处理器已完成")
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	bus.Subscribe(events.DocumentFileCreated, events.HandlerFunc(func(event events.Event) error {
		count.Add(1)
		return nil
	}))
	bus.Close()
	bus.Close()

	bus.Publish(fileEvent(events.DocumentFileCreated))
	assert.Equal(t, int32(0), count.Load())
}
