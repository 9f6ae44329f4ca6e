package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

const (
	// sessionIDLayout 会话 ID 时间格式，按字典序即按创建时间排序
	sessionIDLayout = "20060102_150405"
	// maxIDAttempts 同一秒内的最大候选 ID 数
	maxIDAttempts = 100
	// exportVersion 导出文件格式版本
	exportVersion = 1
)

// Manager 会话历史管理
type Manager struct {
	repo   domainChat.SessionRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewManager 创建历史管理器
func NewManager(repo domainChat.SessionRepository) *Manager {
	return &Manager{
		repo:   repo,
		now:    time.Now,
		logger: log.NewModuleLogger("history", "manager"),
	}
}

// CreateSession 创建并立即持久化新会话
func (m *Manager) CreateSession(ctx context.Context, name string) (*domainChat.Session, error) {
	now := m.now()
	base := now.Format(sessionIDLayout)

	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id := candidateID(base, attempt)
		exists, err := m.repo.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		session := &domainChat.Session{
			ID:        id,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = m.repo.Create(ctx, session)
		if errors.Is(err, domainChat.ErrSessionExists) {
			// 检查与写入之间被抢占
			continue
		}
		if err != nil {
			return nil, err
		}

		m.logger.Debug("Session created", "session_id", id)
		return session, nil
	}
	return nil, fmt.Errorf("%w: no free id for %s", domainChat.ErrSessionExists, base)
}

// candidateID 第一次使用原始时间戳，之后追加 _02、_03 ...
func candidateID(base string, attempt int) string {
	if attempt == 1 {
		return base
	}
	return fmt.Sprintf("%s_%02d", base, attempt)
}

// AppendTurns 追加对话记录
func (m *Manager) AppendTurns(ctx context.Context, id string, turns ...domainChat.Turn) error {
	return m.repo.AppendTurns(ctx, id, turns)
}

// LoadSession 读取完整会话
func (m *Manager) LoadSession(ctx context.Context, id string) (*domainChat.Session, error) {
	return m.repo.Get(ctx, id)
}

// ListSessions 按最近更新排序，limit <= 0 表示全部
func (m *Manager) ListSessions(ctx context.Context, limit int) ([]domainChat.SessionSummary, error) {
	return m.repo.List(ctx, limit)
}

// Summary 单个会话的摘要
func (m *Manager) Summary(ctx context.Context, id string) (domainChat.SessionSummary, error) {
	session, err := m.repo.Get(ctx, id)
	if err != nil {
		return domainChat.SessionSummary{}, err
	}
	return session.Summary(), nil
}

// DeleteSession 删除单个会话
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("Session deleted", "session_id", id)
	return nil
}

// ClearAll 删除全部会话
func (m *Manager) ClearAll(ctx context.Context) error {
	if err := m.repo.DeleteAll(ctx); err != nil {
		return err
	}
	m.logger.Info("All sessions cleared")
	return nil
}

// exportFile 导出文件结构
type exportFile struct {
	Version int                 `json:"version"`
	Session *domainChat.Session `json:"session"`
}

// Export 以 JSON 写出完整会话
func (m *Manager) Export(ctx context.Context, id string, w io.Writer) error {
	session, err := m.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exportFile{Version: exportVersion, Session: session}); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

// Import 读取 Export 写出的 JSON 并保存为会话
// ID 缺失或已被占用时按导入时间分配新 ID
func (m *Manager) Import(ctx context.Context, r io.Reader) (*domainChat.Session, error) {
	var file exportFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if file.Session == nil {
		return nil, fmt.Errorf("failed to decode session: missing session object")
	}
	if file.Version > exportVersion {
		return nil, fmt.Errorf("unsupported export version %d", file.Version)
	}
	src := file.Session

	for i, turn := range src.Turns {
		if turn.Role != domainChat.RoleUser && turn.Role != domainChat.RoleAssistant {
			return nil, fmt.Errorf("invalid role %q in turn %d", turn.Role, i)
		}
		// 记录必须按时间先后排列
		if i > 0 && turn.Timestamp.Before(src.Turns[i-1].Timestamp) {
			return nil, fmt.Errorf("turn %d is earlier than turn %d", i, i-1)
		}
	}

	var target *domainChat.Session
	if src.ID != "" {
		exists, err := m.repo.Exists(ctx, src.ID)
		if err != nil {
			return nil, err
		}
		if !exists {
			target = &domainChat.Session{
				ID:        src.ID,
				Name:      src.Name,
				CreatedAt: src.CreatedAt,
				UpdatedAt: src.CreatedAt,
			}
			if target.CreatedAt.IsZero() {
				target.CreatedAt = m.now()
				target.UpdatedAt = target.CreatedAt
			}
			if err := m.repo.Create(ctx, target); err != nil {
				return nil, err
			}
		}
	}
	if target == nil {
		created, err := m.CreateSession(ctx, src.Name)
		if err != nil {
			return nil, err
		}
		target = created
	}

	if err := m.repo.AppendTurns(ctx, target.ID, src.Turns); err != nil {
		// 不保留没有记录的空会话
		if delErr := m.repo.Delete(context.WithoutCancel(ctx), target.ID); delErr != nil {
			m.logger.Warn("Failed to remove session after import error",
				"session_id", target.ID,
				"error", delErr,
			)
		}
		return nil, err
	}

	m.logger.Info("Session imported",
		"session_id", target.ID,
		"source_id", src.ID,
		"turns", len(src.Turns),
	)
	return m.repo.Get(ctx, target.ID)
}
