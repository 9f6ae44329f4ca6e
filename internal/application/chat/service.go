package chat

import (
	"context"
	"log/slog"
	"time"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// SessionStore 会话读写，由 history.Manager 实现
type SessionStore interface {
	LoadSession(ctx context.Context, id string) (*domainChat.Session, error)
	AppendTurns(ctx context.Context, id string, turns ...domainChat.Turn) error
}

// Asker 问答引擎
type Asker interface {
	Ask(ctx context.Context, question string, history []domainChat.Turn) (*Answer, error)
	AskStream(ctx context.Context, question string, history []domainChat.Turn, onDelta func(string)) (*Answer, error)
}

var _ Asker = (*Engine)(nil)

// Service 会话问答服务
// 检索和生成都成功后才在一个事务内写入用户与助手两条记录
type Service struct {
	engine   Asker
	sessions SessionStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewService 创建会话问答服务
func NewService(engine *Engine, sessions SessionStore) *Service {
	return newService(engine, sessions)
}

func newService(engine Asker, sessions SessionStore) *Service {
	return &Service{
		engine:   engine,
		sessions: sessions,
		now:      time.Now,
		logger:   log.NewModuleLogger("chat", "service"),
	}
}

// Send 在会话中提问并保存本轮对话
func (s *Service) Send(ctx context.Context, sessionID, question string) (*Answer, error) {
	return s.send(ctx, sessionID, func(history []domainChat.Turn) (*Answer, error) {
		return s.engine.Ask(ctx, question, history)
	}, question)
}

// SendStream 与 Send 相同，回答以增量方式回调
func (s *Service) SendStream(ctx context.Context, sessionID, question string, onDelta func(string)) (*Answer, error) {
	return s.send(ctx, sessionID, func(history []domainChat.Turn) (*Answer, error) {
		return s.engine.AskStream(ctx, question, history, onDelta)
	}, question)
}

func (s *Service) send(
	ctx context.Context,
	sessionID string,
	ask func([]domainChat.Turn) (*Answer, error),
	question string,
) (*Answer, error) {
	ctx = log.WithSessionID(ctx, sessionID)

	session, err := s.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	asked := s.now()
	answer, err := ask(session.Turns)
	if err != nil {
		s.logger.Warn("Chat turn failed",
			append(log.LogCtxFromContext(ctx), "error", err)...,
		)
		return nil, err
	}
	// 取消发生在生成之后也不写入
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	answered := s.now()
	if !answered.After(asked) {
		answered = asked.Add(time.Nanosecond)
	}
	err = s.sessions.AppendTurns(ctx, sessionID,
		domainChat.Turn{Role: domainChat.RoleUser, Content: question, Timestamp: asked},
		domainChat.Turn{Role: domainChat.RoleAssistant, Content: answer.Text, Timestamp: answered, Citations: answer.Citations},
	)
	if err != nil {
		return nil, err
	}
	return answer, nil
}
