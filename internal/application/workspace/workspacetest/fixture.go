// Package workspacetest 为接口层测试构建完整的内存工作区
// 真实的分块、索引登记与会话存储，外部模型服务用确定性替身
package workspacetest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	appChat "github.com/pdfchat/pdfchat/internal/application/chat"
	appDocument "github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/history"
	"github.com/pdfchat/pdfchat/internal/application/workspace"
	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/storage"
	"github.com/pdfchat/pdfchat/internal/infrastructure/tokenizer"
	"github.com/pdfchat/pdfchat/internal/infrastructure/vector"
)

// Vocabulary 关键词向量的维度，每个词占一维
var Vocabulary = []string{"revenue", "quarter", "power", "button", "warranty", "battery"}

// TextExtractor 把文件内容当作纯文本，以换页符 \f 分页
type TextExtractor struct{}

// Extract 读取文件并分页，没有任何文本时返回 ErrExtraction
func (TextExtractor) Extract(_ context.Context, path string) ([]domainDocument.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainDocument.ErrExtraction, err)
	}
	var pages []domainDocument.Page
	for i, text := range strings.Split(string(data), "\f") {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, domainDocument.Page{Number: i + 1, Text: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no text in %s", domainDocument.ErrExtraction, filepath.Base(path))
	}
	return pages, nil
}

// KeywordEmbedder 按 Vocabulary 统计词频生成向量，不含关键词的文本得到零向量
type KeywordEmbedder struct {
	Err error
}

// EmbedTexts 实现 domainRAG.Embedder
func (e *KeywordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, len(Vocabulary))
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,;:!?\"'")
			for j, v := range Vocabulary {
				if word == v {
					vec[j]++
				}
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// TestConnection 返回向量维度
func (e *KeywordEmbedder) TestConnection(ctx context.Context) (int, error) {
	if e.Err != nil {
		return 0, e.Err
	}
	return len(Vocabulary), nil
}

// CannedModel 固定回答的对话模型，流式输出按空格拆分
type CannedModel struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Messages [][]domainRAG.Message
}

// Complete 实现 domainRAG.ChatModel
func (m *CannedModel) Complete(ctx context.Context, messages []domainRAG.Message) (string, error) {
	return m.Stream(ctx, messages, nil)
}

// Stream 实现 domainRAG.ChatModel
func (m *CannedModel) Stream(ctx context.Context, messages []domainRAG.Message, onDelta func(string)) (string, error) {
	m.mu.Lock()
	m.Messages = append(m.Messages, messages)
	reply, err := m.Reply, m.Err
	m.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if onDelta != nil {
		words := strings.SplitAfter(reply, " ")
		for _, w := range words {
			if w != "" {
				onDelta(w)
			}
		}
	}
	return reply, nil
}

// TestConnection 与 Complete 共享错误
func (m *CannedModel) TestConnection(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

// SetReply 修改后续回答
func (m *CannedModel) SetReply(reply string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reply = reply
	m.Err = err
}

// Fixture 组装好的工作区及其替身
type Fixture struct {
	Manager  *workspace.Manager
	History  *history.Manager
	Store    *vector.MemoryStore
	Embedder *KeywordEmbedder
	Model    *CannedModel
	Dir      string
}

// New 创建使用临时 SQLite 与内存向量库的工作区
func New(t *testing.T) *Fixture {
	t.Helper()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	chunker, err := appDocument.NewChunkerWithSplitter(tokenizer.RuneSplitter{}, 200, 20)
	require.NoError(t, err)

	store := vector.NewMemoryStore()
	embedder := &KeywordEmbedder{}
	model := &CannedModel{Reply: "Revenue grew twelve percent."}
	chatCfg := &config.ChatConfig{
		MaxContextChunks: 3,
		HistoryTurns:     6,
		MinScore:         0.3,
		SystemPrompt:     config.DefaultSystemPrompt,
	}

	historyManager := history.NewManager(storage.NewSessionRepository(db))
	ingest := appDocument.NewIngestService(
		appDocument.NewProcessor(TextExtractor{}, chunker),
		embedder,
		store,
		storage.NewDocumentRepository(db),
		nil,
		&config.EmbeddingConfig{BatchSize: 4},
	)
	engine := appChat.NewEngine(embedder, store, model, chatCfg)
	manager := workspace.NewManager(
		ingest,
		historyManager,
		appChat.NewService(engine, historyManager),
		engine,
		embedder,
		model,
		nil,
	)

	return &Fixture{
		Manager:  manager,
		History:  historyManager,
		Store:    store,
		Embedder: embedder,
		Model:    model,
		Dir:      t.TempDir(),
	}
}

// WritePDF 写入一个以 \f 分页的测试文件并返回路径
func (f *Fixture) WritePDF(t *testing.T, name string, pages ...string) string {
	t.Helper()
	path := filepath.Join(f.Dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0o644))
	return path
}
