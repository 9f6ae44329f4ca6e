package rag

import "context"

// Embedder 文本向量化
type Embedder interface {
	// EmbedTexts 按输入顺序返回向量，失败时错误包装 ErrEmbedding
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel 对话模型
type ChatModel interface {
	// Complete 返回完整回答，失败时错误包装 ErrChatModel
	Complete(ctx context.Context, messages []Message) (string, error)
	// Stream 按顺序回调增量文本并返回完整回答
	Stream(ctx context.Context, messages []Message, onDelta func(string)) (string, error)
}

// VectorStore 向量库适配器
type VectorStore interface {
	// Upsert 按片段 ID 幂等写入，返回写入数量
	Upsert(ctx context.Context, chunks []EmbeddedChunk) (int, error)
	// Query 返回按相似度降序的至多 k 条结果
	Query(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error)
	// DeleteByFile 删除某文件的全部片段
	DeleteByFile(ctx context.Context, fileName string) error
	// CountByFile 返回某文件当前存储的片段数
	CountByFile(ctx context.Context, fileName string) (int, error)
	// Clear 删除全部记录
	Clear(ctx context.Context) error
	// Stats 返回文档数与片段数
	Stats(ctx context.Context) (*Stats, error)
}
