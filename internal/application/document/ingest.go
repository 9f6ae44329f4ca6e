package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	"github.com/pdfchat/pdfchat/internal/domain/events"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// discardTimeout 写入失败后清理残留片段的时间上限
const discardTimeout = 10 * time.Second

// UploadResult 单个文件的上传结果
type UploadResult struct {
	Path     string `json:"path"`
	FileName string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped"` // 内容未变化，未重新索引
	Err      error  `json:"-"`
}

// Error 便于序列化的错误文本
func (r UploadResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// IngestService 文档上传与索引服务
type IngestService struct {
	processor *Processor
	embedder  domainRAG.Embedder
	store     domainRAG.VectorStore
	documents domainDocument.Repository
	publisher events.Publisher
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// NewIngestService 创建上传服务
func NewIngestService(
	processor *Processor,
	embedder domainRAG.Embedder,
	store domainRAG.VectorStore,
	documents domainDocument.Repository,
	publisher events.Publisher,
	cfg *config.EmbeddingConfig,
) *IngestService {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &IngestService{
		processor: processor,
		embedder:  embedder,
		store:     store,
		documents: documents,
		publisher: publisher,
		batchSize: batchSize,
		now:       time.Now,
		logger:    log.NewModuleLogger("document", "ingest"),
	}
}

// Upload 逐个处理文件，单个文件失败不影响后续文件
func (s *IngestService) Upload(ctx context.Context, paths []string) []UploadResult {
	results := make([]UploadResult, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			results = append(results, UploadResult{Path: path, FileName: filepath.Base(path), Err: ctx.Err()})
			continue
		}
		results = append(results, s.IndexFile(ctx, path))
	}
	return results
}

// IndexFile 校验、提取、分块、向量化并写入单个文件
func (s *IngestService) IndexFile(ctx context.Context, path string) UploadResult {
	result := s.indexFile(ctx, path)
	if result.Err != nil {
		s.logger.Warn("Document indexing failed",
			"file", result.FileName,
			"error", result.Err,
		)
	}
	s.publish(&events.IndexEvent{
		EventType: events.DocumentIndexed,
		FileName:  result.FileName,
		Pages:     result.Pages,
		Chunks:    result.Chunks,
		Skipped:   result.Skipped,
		Error:     result.Error(),
	})
	return result
}

func (s *IngestService) indexFile(ctx context.Context, path string) UploadResult {
	result := UploadResult{Path: path, FileName: filepath.Base(path)}

	abs, err := ValidatePath(path)
	if err != nil {
		result.Err = err
		return result
	}

	hash, err := hashFile(abs)
	if err != nil {
		result.Err = fmt.Errorf("%w: %s: %v", domainDocument.ErrInvalidFile, result.FileName, err)
		return result
	}

	existing, err := s.documents.FindByName(ctx, result.FileName)
	switch {
	case err == nil && !existing.NeedsReindex(hash):
		unchanged, err := s.storedIntact(ctx, existing)
		if err != nil {
			result.Err = err
			return result
		}
		if unchanged {
			s.logger.Info("Document unchanged, skipping",
				"file", result.FileName,
			)
			result.Pages = existing.PageCount
			result.Chunks = existing.ChunkCount
			result.Skipped = true
			return result
		}
	case err != nil && !errors.Is(err, domainDocument.ErrDocumentNotFound):
		result.Err = err
		return result
	}

	processed, err := s.processor.ProcessFile(ctx, abs)
	if err != nil {
		result.Err = err
		return result
	}
	result.Pages = processed.Pages

	embedded, err := s.embedChunks(ctx, processed.Chunks)
	if err != nil {
		result.Err = err
		return result
	}

	// 同名文件内容变化时先删除旧片段，避免残留
	if err := s.store.DeleteByFile(ctx, result.FileName); err != nil {
		result.Err = err
		return result
	}

	for i := 0; i < len(embedded); i += s.batchSize {
		end := min(i+s.batchSize, len(embedded))
		if _, err := s.store.Upsert(ctx, embedded[i:end]); err != nil {
			s.discard(ctx, result.FileName)
			result.Err = err
			return result
		}
	}

	err = s.documents.Save(ctx, &domainDocument.IndexedDocument{
		FileName:    result.FileName,
		FilePath:    abs,
		ContentHash: hash,
		PageCount:   processed.Pages,
		ChunkCount:  len(embedded),
		IndexedAt:   s.now(),
	})
	if err != nil {
		result.Err = err
		return result
	}

	result.Chunks = len(embedded)
	s.logger.Info("Document indexed",
		"file", result.FileName,
		"pages", result.Pages,
		"chunks", result.Chunks,
	)
	return result
}

// storedIntact 向量库中该文件的片段数与登记一致时返回 true
// 不一致时删除登记，由调用方重新索引
func (s *IngestService) storedIntact(ctx context.Context, doc *domainDocument.IndexedDocument) (bool, error) {
	stored, err := s.store.CountByFile(ctx, doc.FileName)
	if err != nil {
		return false, err
	}
	if stored == doc.ChunkCount {
		return true, nil
	}

	s.logger.Warn("Indexed document out of sync with vector store, reindexing",
		"file", doc.FileName,
		"registered_chunks", doc.ChunkCount,
		"stored_chunks", stored,
	)
	if err := s.documents.Delete(ctx, doc.FileName); err != nil {
		return false, err
	}
	return false, nil
}

// discard 写入中途失败时清理该文件已写入的片段与旧登记，旧片段此时已被删除
func (s *IngestService) discard(ctx context.Context, fileName string) {
	// 原 ctx 可能已取消
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := s.store.DeleteByFile(cleanupCtx, fileName); err != nil {
		s.logger.Warn("Failed to remove partially indexed chunks",
			"file", fileName,
			"error", err,
		)
	}
	if err := s.documents.Delete(cleanupCtx, fileName); err != nil {
		s.logger.Warn("Failed to remove stale document record",
			"file", fileName,
			"error", err,
		)
	}
}

// embedChunks 按批次向量化
func (s *IngestService) embedChunks(ctx context.Context, chunks []*domainDocument.Chunk) ([]domainRAG.EmbeddedChunk, error) {
	embedded := make([]domainRAG.EmbeddedChunk, 0, len(chunks))
	for i := 0; i < len(chunks); i += s.batchSize {
		end := min(i+s.batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}
		vectors, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d", domainRAG.ErrEmbedding, len(batch), len(vectors))
		}
		for j, c := range batch {
			embedded = append(embedded, domainRAG.EmbeddedChunk{Chunk: c, Vector: vectors[j]})
		}
	}
	return embedded, nil
}

// ListDocuments 列出已索引文档
func (s *IngestService) ListDocuments(ctx context.Context) ([]*domainDocument.IndexedDocument, error) {
	return s.documents.List(ctx)
}

// Stats 向量库统计
func (s *IngestService) Stats(ctx context.Context) (*domainRAG.Stats, error) {
	return s.store.Stats(ctx)
}

// Remove 从向量库与登记表中移除一个文件
func (s *IngestService) Remove(ctx context.Context, fileName string) error {
	if err := s.store.DeleteByFile(ctx, fileName); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, fileName); err != nil {
		return err
	}
	s.logger.Info("Document removed", "file", fileName)
	s.publish(&events.IndexEvent{EventType: events.DocumentRemoved, FileName: fileName})
	return nil
}

// Clear 清空向量库与索引登记
func (s *IngestService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	if err := s.documents.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info("All documents cleared")
	s.publish(&events.IndexEvent{EventType: events.IndexCleared})
	return nil
}

func (s *IngestService) publish(event *events.IndexEvent) {
	if s.publisher == nil {
		return
	}
	event.EventTime = s.now()
	s.publisher.Publish(event)
}

// hashFile 计算文件 SHA-256
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
