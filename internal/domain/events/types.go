// Package events 定义领域事件类型和接口
// 用于文件监听、索引进度等内部事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 文档文件相关事件类型
const (
	// DocumentFileCreated 监听目录中出现新的 PDF
	DocumentFileCreated EventType = "document.file.created"
	// DocumentFileModified PDF 内容被改写
	DocumentFileModified EventType = "document.file.modified"
	// DocumentFileDeleted PDF 被删除或移走
	DocumentFileDeleted EventType = "document.file.deleted"
)

// 索引相关事件类型
const (
	// DocumentIndexed 文档索引完成（含跳过与失败）
	DocumentIndexed EventType = "document.indexed"
	// DocumentRemoved 文档从索引中移除
	DocumentRemoved EventType = "document.removed"
	// IndexCleared 向量库被清空
	IndexCleared EventType = "index.cleared"
)

// Event 领域事件接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
