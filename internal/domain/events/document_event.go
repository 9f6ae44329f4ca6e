package events

import "time"

// DocumentFileEvent 监听目录下 PDF 文件变更事件
type DocumentFileEvent struct {
	EventType EventType
	// FilePath 文件完整路径
	FilePath string
	ModTime  time.Time
	FileSize int64
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *DocumentFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *DocumentFileEvent) Timestamp() time.Time {
	return e.EventTime
}
