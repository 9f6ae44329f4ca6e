package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pdfchat/pdfchat/internal/application/history"
	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/storage"
)

func newTestHistory(t *testing.T) *history.Manager {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return history.NewManager(storage.NewSessionRepository(db))
}

func newTestService(t *testing.T, model *MockChatModel) (*Service, *history.Manager) {
	t.Helper()
	store := seedStore(t, embedded("report.pdf", 3, 0, "Revenue grew.", 1, 0))
	embedder := new(MockEmbedder)
	embedder.On("EmbedTexts", mock.Anything, mock.Anything).Return([][]float32{{1, 0}}, nil)

	sessions := newTestHistory(t)
	return NewService(NewEngine(embedder, store, model, testChatConfig()), sessions), sessions
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	model := new(MockChatModel)
	model.On("Complete", mock.Anything, mock.Anything).Return("Revenue grew.", nil)
	svc, sessions := newTestService(t, model)

	session, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)

	answer, err := svc.Send(ctx, session.ID, "How did revenue change?")
	require.NoError(t, err)
	require.Len(t, answer.Citations, 1)

	loaded, err := sessions.LoadSession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 2)
	assert.Equal(t, domainChat.RoleUser, loaded.Turns[0].Role)
	assert.Equal(t, "How did revenue change?", loaded.Turns[0].Content)
	assert.Equal(t, domainChat.RoleAssistant, loaded.Turns[1].Role)
	assert.Equal(t, "Revenue grew.", loaded.Turns[1].Content)
	assert.Equal(t, "report.pdf", loaded.Turns[1].Citations[0].FileName)
	assert.True(t, loaded.Turns[1].Timestamp.After(loaded.Turns[0].Timestamp))

	// 第二轮把上一轮作为历史发送
	_, err = svc.Send(ctx, session.ID, "And costs?")
	require.NoError(t, err)
	last := model.Calls[len(model.Calls)-1].Arguments.Get(1).([]domainRAG.Message)
	require.Len(t, last, 4)
	assert.Equal(t, "How did revenue change?", last[1].Content)
}

func TestService_FailureLeavesSessionUnchanged(t *testing.T) {
	tests := []struct {
		name  string
		setup func(model *MockChatModel)
		want  error
	}{
		{
			name: "生成失败",
			setup: func(model *MockChatModel) {
				model.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))
			},
			want: domainRAG.ErrChatModel,
		},
		{
			name: "空回答",
			setup: func(model *MockChatModel) {
				model.On("Complete", mock.Anything, mock.Anything).Return("", nil)
			},
			want: domainRAG.ErrEmptyAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			model := new(MockChatModel)
			tt.setup(model)
			svc, sessions := newTestService(t, model)

			session, err := sessions.CreateSession(ctx, "")
			require.NoError(t, err)

			_, err = svc.Send(ctx, session.ID, "question")
			assert.ErrorIs(t, err, tt.want)

			loaded, err := sessions.LoadSession(ctx, session.ID)
			require.NoError(t, err)
			assert.Empty(t, loaded.Turns)
		})
	}
}

func TestService_CancelledAfterGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	model := new(MockChatModel)
	model.On("Complete", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return("late answer", nil)
	svc, sessions := newTestService(t, model)

	session, err := sessions.CreateSession(context.Background(), "")
	require.NoError(t, err)

	_, err = svc.Send(ctx, session.ID, "question")
	assert.ErrorIs(t, err, context.Canceled)

	loaded, err := sessions.LoadSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Turns)
}

func TestService_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t, new(MockChatModel))

	_, err := svc.Send(context.Background(), "missing", "question")
	assert.ErrorIs(t, err, domainChat.ErrSessionNotFound)
}

func TestService_SendStream(t *testing.T) {
	ctx := context.Background()
	model := new(MockChatModel)
	model.On("Stream", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(2).(func(string))("Revenue ")
			args.Get(2).(func(string))("grew.")
		}).
		Return("Revenue grew.", nil)
	svc, sessions := newTestService(t, model)

	session, err := sessions.CreateSession(ctx, "")
	require.NoError(t, err)

	var streamed string
	answer, err := svc.SendStream(ctx, session.ID, "q", func(d string) { streamed += d })
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew.", streamed)
	assert.Equal(t, answer.Text, streamed)

	summary, err := sessions.Summary(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TurnCount)
}
