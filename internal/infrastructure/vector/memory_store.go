package vector

import (
	"context"
	"fmt"
	"math"
	"sync"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
)

// MemoryStore 进程内向量库，余弦相似度暴力检索
// 数据不落盘，用于测试与临时会话
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    map[string]domainRAG.EmbeddedChunk
	dimension int
}

var _ domainRAG.VectorStore = (*MemoryStore)(nil)

// NewMemoryStore 创建进程内向量库
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]domainRAG.EmbeddedChunk)}
}

// Upsert 按片段 ID 覆盖写入
func (s *MemoryStore) Upsert(_ context.Context, chunks []domainRAG.EmbeddedChunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ec := range chunks {
		if s.dimension == 0 {
			s.dimension = len(ec.Vector)
		}
		if len(ec.Vector) != s.dimension {
			return 0, fmt.Errorf("%w: vector dimension mismatch: %d != %d", domainRAG.ErrStore, len(ec.Vector), s.dimension)
		}
	}
	for _, ec := range chunks {
		c := *ec.Chunk
		s.chunks[c.ID] = domainRAG.EmbeddedChunk{Chunk: &c, Vector: append([]float32(nil), ec.Vector...)}
	}
	return len(chunks), nil
}

// Query 余弦相似度降序返回至多 k 条
func (s *MemoryStore) Query(_ context.Context, vector []float32, k int) ([]domainRAG.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]domainRAG.ScoredChunk, 0, len(s.chunks))
	for _, ec := range s.chunks {
		c := *ec.Chunk
		results = append(results, domainRAG.ScoredChunk{
			Chunk: &c,
			Score: cosineSimilarity(vector, ec.Vector),
		})
	}
	sortAndLimit(&results, k)
	return results, nil
}

// DeleteByFile 删除某文件的全部片段
func (s *MemoryStore) DeleteByFile(_ context.Context, fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ec := range s.chunks {
		if ec.Chunk.FileName == fileName {
			delete(s.chunks, id)
		}
	}
	return nil
}

// CountByFile 统计某文件的片段数
func (s *MemoryStore) CountByFile(_ context.Context, fileName string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ec := range s.chunks {
		if ec.Chunk.FileName == fileName {
			n++
		}
	}
	return n, nil
}

// Clear 清空
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]domainRAG.EmbeddedChunk)
	s.dimension = 0
	return nil
}

// Stats 统计不同文件名数与片段数
func (s *MemoryStore) Stats(_ context.Context) (*domainRAG.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := make(map[string]struct{})
	for _, ec := range s.chunks {
		files[ec.Chunk.FileName] = struct{}{}
	}
	return &domainRAG.Stats{Documents: len(files), Chunks: len(s.chunks)}, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
