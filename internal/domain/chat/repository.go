package chat

import "context"

// SessionRepository 会话持久化接口
type SessionRepository interface {
	// Create 保存新会话，ID 冲突返回 ErrSessionExists
	Create(ctx context.Context, session *Session) error
	// Exists 检查会话 ID 是否存在
	Exists(ctx context.Context, id string) (bool, error)
	// AppendTurns 在一个事务内追加记录，会话不存在返回 ErrSessionNotFound
	AppendTurns(ctx context.Context, id string, turns []Turn) error
	// Get 读取完整会话，不存在返回 ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)
	// List 按更新时间倒序列出摘要，limit <= 0 表示全部
	List(ctx context.Context, limit int) ([]SessionSummary, error)
	// Delete 删除单个会话
	Delete(ctx context.Context, id string) error
	// DeleteAll 删除全部会话
	DeleteAll(ctx context.Context) error
}
