package workspace

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	appChat "github.com/pdfchat/pdfchat/internal/application/chat"
	appDocument "github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/history"
	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// EmbeddingChecker 向量化服务连通性检查，返回向量维度
type EmbeddingChecker interface {
	TestConnection(ctx context.Context) (int, error)
}

// ChatModelChecker 对话模型连通性检查
type ChatModelChecker interface {
	TestConnection(ctx context.Context) error
}

// StoreChecker 向量库连通性检查
type StoreChecker interface {
	Ping(ctx context.Context) error
}

// Stats 索引与历史统计
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Sessions  int `json:"sessions"`
}

// CheckResult 单个外部依赖的检查结果
type CheckResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Manager 工作区门面，组合索引、检索、问答与会话历史
// 所有操作共用一把互斥锁，同一时刻只执行一个操作
type Manager struct {
	mu        sync.Mutex
	ingest    *appDocument.IngestService
	history   *history.Manager
	chat      *appChat.Service
	engine    *appChat.Engine
	embedding EmbeddingChecker
	model     ChatModelChecker
	store     StoreChecker
	logger    *slog.Logger
}

// NewManager 创建工作区门面
func NewManager(
	ingest *appDocument.IngestService,
	historyManager *history.Manager,
	chatService *appChat.Service,
	engine *appChat.Engine,
	embedding EmbeddingChecker,
	model ChatModelChecker,
	store StoreChecker,
) *Manager {
	return &Manager{
		ingest:    ingest,
		history:   historyManager,
		chat:      chatService,
		engine:    engine,
		embedding: embedding,
		model:     model,
		store:     store,
		logger:    log.NewModuleLogger("workspace", "manager"),
	}
}

// Upload 依次索引文件，返回逐个文件的结果
func (m *Manager) Upload(ctx context.Context, paths []string) []appDocument.UploadResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingest.Upload(ctx, paths)
}

// Documents 已索引文档列表
func (m *Manager) Documents(ctx context.Context) ([]*domainDocument.IndexedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingest.ListDocuments(ctx)
}

// RemoveDocument 按文件名移除文档
func (m *Manager) RemoveDocument(ctx context.Context, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ingest.Remove(ctx, fileName)
}

// Stats 汇总向量库与会话数量
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	storeStats, err := m.ingest.Stats(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := m.history.ListSessions(ctx, 0)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Documents: storeStats.Documents,
		Chunks:    storeStats.Chunks,
		Sessions:  len(sessions),
	}, nil
}

// ClearAll 清空向量库、索引登记与全部会话
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ingest.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if err := m.history.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	m.logger.Info("Workspace cleared")
	return nil
}

// CreateSession 新建会话
func (m *Manager) CreateSession(ctx context.Context, name string) (*domainChat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CreateSession(ctx, name)
}

// ListSessions 会话摘要，limit <= 0 表示全部
func (m *Manager) ListSessions(ctx context.Context, limit int) ([]domainChat.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.ListSessions(ctx, limit)
}

// LoadSession 读取完整会话
func (m *Manager) LoadSession(ctx context.Context, id string) (*domainChat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.LoadSession(ctx, id)
}

// DeleteSession 删除会话
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.DeleteSession(ctx, id)
}

// ExportSession 导出会话 JSON
func (m *Manager) ExportSession(ctx context.Context, id string, w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Export(ctx, id, w)
}

// ImportSession 导入会话 JSON
func (m *Manager) ImportSession(ctx context.Context, r io.Reader) (*domainChat.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Import(ctx, r)
}

// Ask 在会话中提问并记录本轮对话
func (m *Manager) Ask(ctx context.Context, sessionID, question string) (*appChat.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chat.Send(ctx, sessionID, question)
}

// AskStream 流式提问，onDelta 按顺序收到回答片段
func (m *Manager) AskStream(ctx context.Context, sessionID, question string, onDelta func(string)) (*appChat.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chat.SendStream(ctx, sessionID, question, onDelta)
}

// Search 只检索不生成
func (m *Manager) Search(ctx context.Context, query string, k int) ([]domainRAG.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine.Search(ctx, query, k)
}

// Check 检查向量化服务、对话模型与向量库的连通性
// 未配置的检查项不出现在结果中
func (m *Manager) Check(ctx context.Context) []CheckResult {
	var results []CheckResult

	if m.embedding != nil {
		dim, err := m.embedding.TestConnection(ctx)
		results = append(results, checkResult("embedding", fmt.Sprintf("dimension %d", dim), err))
	}
	if m.model != nil {
		results = append(results, checkResult("chat model", "reachable", m.model.TestConnection(ctx)))
	}
	if m.store != nil {
		results = append(results, checkResult("vector store", "reachable", m.store.Ping(ctx)))
	}
	for _, r := range results {
		if !r.OK {
			m.logger.Warn("Dependency check failed", "name", r.Name, "detail", r.Detail)
		}
	}
	return results
}

func checkResult(name, okDetail string, err error) CheckResult {
	if err != nil {
		return CheckResult{Name: name, Detail: err.Error()}
	}
	return CheckResult{Name: name, OK: true, Detail: okDetail}
}
