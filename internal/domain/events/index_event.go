package events

import "time"

// IndexEvent 索引结果事件，推送给 WebSocket 订阅者
type IndexEvent struct {
	EventType EventType `json:"type"`
	FileName  string    `json:"filename,omitempty"`
	Pages     int       `json:"pages,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	Skipped   bool      `json:"skipped,omitempty"`
	Error     string    `json:"error,omitempty"`
	EventTime time.Time `json:"time"`
}

// Type 实现 Event 接口
func (e *IndexEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *IndexEvent) Timestamp() time.Time {
	return e.EventTime
}
