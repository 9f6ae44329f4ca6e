package rag

import "github.com/pdfchat/pdfchat/internal/domain/document"

// EmbeddedChunk 片段及其向量
type EmbeddedChunk struct {
	Chunk  *document.Chunk
	Vector []float32
}

// ScoredChunk 检索命中的片段，Score 为余弦相似度
type ScoredChunk struct {
	Chunk *document.Chunk
	Score float32
}

// Stats 向量库统计
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// MessageRole 发送给对话模型的消息角色
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message 对话模型输入消息
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}
