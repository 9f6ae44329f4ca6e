package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// Answer 一次问答的结果
type Answer struct {
	Text      string                `json:"answer"`
	Citations []domainChat.Citation `json:"citations"`
}

// Engine 检索增强问答引擎
// 流程：向量化问题 -> 检索 -> 拼装提示 -> 调用对话模型 -> 生成引用
type Engine struct {
	embedder domainRAG.Embedder
	store    domainRAG.VectorStore
	model    domainRAG.ChatModel
	cfg      *config.ChatConfig
	logger   *slog.Logger
}

// NewEngine 创建问答引擎
func NewEngine(
	embedder domainRAG.Embedder,
	store domainRAG.VectorStore,
	model domainRAG.ChatModel,
	cfg *config.ChatConfig,
) *Engine {
	return &Engine{
		embedder: embedder,
		store:    store,
		model:    model,
		cfg:      cfg,
		logger:   log.NewModuleLogger("chat", "engine"),
	}
}

// Search 只做检索，返回按相似度降序的至多 k 条结果
func (e *Engine) Search(ctx context.Context, query string, k int) ([]domainRAG.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainChat.ErrEmptyQuestion
	}
	if k <= 0 {
		k = e.cfg.MaxContextChunks
	}

	vectors, err := e.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, wrapAs(err, domainRAG.ErrEmbedding)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned for query", domainRAG.ErrEmbedding)
	}

	results, err := e.store.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, wrapAs(err, domainRAG.ErrStore)
	}
	return results, nil
}

// retrieve 检索并过滤低相关片段
func (e *Engine) retrieve(ctx context.Context, question string) ([]domainRAG.ScoredChunk, error) {
	results, err := e.Search(ctx, question, e.cfg.MaxContextChunks)
	if err != nil {
		return nil, err
	}

	relevant := results[:0]
	for _, r := range results {
		if float64(r.Score) >= e.cfg.MinScore {
			relevant = append(relevant, r)
		}
	}
	e.logger.Debug("Context retrieved",
		"hits", len(results),
		"relevant", len(relevant),
	)
	return relevant, nil
}

// Ask 回答问题，history 为同一会话中已有的对话
func (e *Engine) Ask(ctx context.Context, question string, history []domainChat.Turn) (*Answer, error) {
	return e.answer(ctx, question, history, func(messages []domainRAG.Message) (string, error) {
		return e.model.Complete(ctx, messages)
	})
}

// AskStream 与 Ask 相同，但按顺序回调模型输出的增量文本
func (e *Engine) AskStream(ctx context.Context, question string, history []domainChat.Turn, onDelta func(string)) (*Answer, error) {
	return e.answer(ctx, question, history, func(messages []domainRAG.Message) (string, error) {
		return e.model.Stream(ctx, messages, onDelta)
	})
}

func (e *Engine) answer(
	ctx context.Context,
	question string,
	history []domainChat.Turn,
	generate func([]domainRAG.Message) (string, error),
) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domainChat.ErrEmptyQuestion
	}

	start := time.Now()
	chunks, err := e.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	messages := buildMessages(e.cfg.SystemPrompt, question, history, e.cfg.HistoryTurns, chunks)
	text, err := generate(messages)
	if err != nil {
		return nil, wrapAs(err, domainRAG.ErrChatModel)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domainRAG.ErrEmptyAnswer
	}

	answer := &Answer{
		Text:      strings.TrimSpace(text),
		Citations: buildCitations(chunks),
	}
	e.logger.Info("Question answered",
		"context_chunks", len(chunks),
		"citations", len(answer.Citations),
		"duration", time.Since(start),
	)
	return answer, nil
}

// wrapAs 保证错误链中包含指定哨兵错误，context 取消原样返回
func wrapAs(err, sentinel error) error {
	if errors.Is(err, sentinel) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
