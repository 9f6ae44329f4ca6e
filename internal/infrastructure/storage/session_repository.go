package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
)

// 确保 SessionRepositoryImpl 实现了 domainChat.SessionRepository 接口
var _ domainChat.SessionRepository = (*SessionRepositoryImpl)(nil)

// SessionRepositoryImpl 会话仓库实现
type SessionRepositoryImpl struct {
	db *sql.DB
}

// NewSessionRepository 创建会话仓库实例
func NewSessionRepository(db *sql.DB) *SessionRepositoryImpl {
	return &SessionRepositoryImpl{db: db}
}

// Create 保存新会话
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domainChat.Session) error {
	query := `
		INSERT INTO chat_sessions (id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Name,
		session.CreatedAt.UnixNano(),
		session.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domainChat.ErrSessionExists, session.ID)
	}
	return nil
}

// Exists 检查会话是否存在
func (r *SessionRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM chat_sessions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query session: %w", err)
	}
	return true, nil
}

// AppendTurns 在一个事务内追加对话记录并更新会话时间
func (r *SessionRepositoryImpl) AppendTurns(ctx context.Context, id string, turns []domainChat.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM chat_sessions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", domainChat.ErrSessionNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to query session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_turns (session_id, role, content, citations, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	var last time.Time
	for _, turn := range turns {
		citations := turn.Citations
		if citations == nil {
			citations = []domainChat.Citation{}
		}
		citationsJSON, err := json.Marshal(citations)
		if err != nil {
			return fmt.Errorf("failed to marshal citations: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(turn.Role), turn.Content, string(citationsJSON), turn.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
		if turn.Timestamp.After(last) {
			last = turn.Timestamp
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = MAX(updated_at, ?) WHERE id = ?`,
		last.UnixNano(), id,
	); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get 读取完整会话
func (r *SessionRepositoryImpl) Get(ctx context.Context, id string) (*domainChat.Session, error) {
	var (
		session              domainChat.Session
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM chat_sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Name, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domainChat.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	session.CreatedAt = time.Unix(0, createdAt)
	session.UpdatedAt = time.Unix(0, updatedAt)

	rows, err := r.db.QueryContext(ctx, `
		SELECT role, content, citations, created_at
		FROM chat_turns
		WHERE session_id = ?
		ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	session.Turns = []domainChat.Turn{}
	for rows.Next() {
		var (
			turn          domainChat.Turn
			role          string
			citationsJSON string
			ts            int64
		)
		if err := rows.Scan(&role, &turn.Content, &citationsJSON, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Role = domainChat.Role(role)
		turn.Timestamp = time.Unix(0, ts)
		if err := json.Unmarshal([]byte(citationsJSON), &turn.Citations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
		}
		if len(turn.Citations) == 0 {
			turn.Citations = nil
		}
		session.Turns = append(session.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}

	return &session, nil
}

// List 按更新时间倒序列出会话摘要
func (r *SessionRepositoryImpl) List(ctx context.Context, limit int) ([]domainChat.SessionSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT s.id, s.name, s.created_at, s.updated_at,
		       COUNT(t.id),
		       COALESCE(SUM(CASE WHEN t.role = 'user' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN t.role = 'assistant' THEN 1 ELSE 0 END), 0)
		FROM chat_sessions s
		LEFT JOIN chat_turns t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	results := []domainChat.SessionSummary{}
	for rows.Next() {
		var (
			sum                  domainChat.SessionSummary
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &createdAt, &updatedAt,
			&sum.TurnCount, &sum.UserTurns, &sum.AssistantTurns); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.CreatedAt = time.Unix(0, createdAt)
		sum.UpdatedAt = time.Unix(0, updatedAt)
		results = append(results, sum)
	}
	return results, rows.Err()
}

// Delete 删除会话及其对话记录
func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domainChat.ErrSessionNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	return tx.Commit()
}

// DeleteAll 删除全部会话
func (r *SessionRepositoryImpl) DeleteAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_turns`); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions`); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return tx.Commit()
}
