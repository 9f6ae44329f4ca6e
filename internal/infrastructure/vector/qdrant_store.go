package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// QdrantStore 基于 Qdrant 的向量库适配器
type QdrantStore struct {
	manager    *QdrantManager
	collection string
	documents  domainDocument.Repository
	dimension  uint64 // 已确认的集合维度，0 表示未知
	mu         sync.Mutex
	logger     *slog.Logger
}

var _ domainRAG.VectorStore = (*QdrantStore)(nil)

// NewQdrantStore 创建向量库适配器
func NewQdrantStore(manager *QdrantManager, cfg *config.QdrantConfig, documents domainDocument.Repository) *QdrantStore {
	return &QdrantStore{
		manager:    manager,
		collection: cfg.Collection,
		documents:  documents,
		logger:     log.NewModuleLogger("vector", "qdrant_store"),
	}
}

// Upsert 写入片段向量，按片段 ID 幂等
func (s *QdrantStore) Upsert(ctx context.Context, chunks []domainRAG.EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	client, err := s.manager.Client(ctx)
	if err != nil {
		return 0, err
	}

	dim := uint64(len(chunks[0].Vector))
	if err := s.ensureCollection(ctx, client, dim); err != nil {
		return 0, err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ec := range chunks {
		if uint64(len(ec.Vector)) != dim {
			return 0, fmt.Errorf("%w: vector dimension mismatch: %d != %d", domainRAG.ErrStore, len(ec.Vector), dim)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ec.Chunk.ID),
			Vectors: qdrant.NewVectors(ec.Vector...),
			Payload: qdrant.NewValueMap(chunkPayload(ec.Chunk)),
		}
	}

	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to upsert points: %v", domainRAG.ErrStore, err)
	}

	s.logger.Debug("Points upserted",
		"collection", s.collection,
		"count", len(points),
	)
	return len(points), nil
}

// Query 返回相似度降序的至多 k 条结果；集合不存在时返回空
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int) ([]domainRAG.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	client, err := s.manager.Client(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check collection: %v", domainRAG.ErrStore, err)
	}
	if !exists {
		return nil, nil
	}

	limit := uint64(k)
	hits, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query points: %v", domainRAG.ErrStore, err)
	}

	results := make([]domainRAG.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		results = append(results, domainRAG.ScoredChunk{
			Chunk: chunkFromPayload(hit.GetId().GetUuid(), hit.GetPayload()),
			Score: hit.GetScore(),
		})
	}
	sortAndLimit(&results, k)
	return results, nil
}

// DeleteByFile 删除某文件的全部片段
func (s *QdrantStore) DeleteByFile(ctx context.Context, fileName string) error {
	client, err := s.manager.Client(ctx)
	if err != nil {
		return err
	}

	exists, err := client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection: %v", domainRAG.ErrStore, err)
	}
	if !exists {
		return nil
	}

	_, err = client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: fileFilter(fileName),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete points of %s: %v", domainRAG.ErrStore, fileName, err)
	}
	return nil
}

// CountByFile 精确统计某文件的片段数，集合不存在时为 0
func (s *QdrantStore) CountByFile(ctx context.Context, fileName string) (int, error) {
	client, err := s.manager.Client(ctx)
	if err != nil {
		return 0, err
	}

	exists, err := client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to check collection: %v", domainRAG.ErrStore, err)
	}
	if !exists {
		return 0, nil
	}

	count, err := client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         fileFilter(fileName),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count points of %s: %v", domainRAG.ErrStore, fileName, err)
	}
	return int(count), nil
}

func fileFilter(fileName string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadFileName, fileName),
		},
	}
}

// Clear 删除集合
func (s *QdrantStore) Clear(ctx context.Context) error {
	client, err := s.manager.Client(ctx)
	if err != nil {
		return err
	}

	exists, err := client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection: %v", domainRAG.ErrStore, err)
	}
	if exists {
		if err := client.DeleteCollection(ctx, s.collection); err != nil {
			return fmt.Errorf("%w: failed to delete collection: %v", domainRAG.ErrStore, err)
		}
	}

	s.mu.Lock()
	s.dimension = 0
	s.mu.Unlock()

	s.logger.Info("Collection cleared", "collection", s.collection)
	return nil
}

// Stats 片段数取自 Qdrant 精确计数，文档数取自索引登记
func (s *QdrantStore) Stats(ctx context.Context) (*domainRAG.Stats, error) {
	client, err := s.manager.Client(ctx)
	if err != nil {
		return nil, err
	}

	var chunks int
	exists, err := client.CollectionExists(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to check collection: %v", domainRAG.ErrStore, err)
	}
	if exists {
		count, err := client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.collection,
			Exact:          qdrant.PtrOf(true),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: failed to count points: %v", domainRAG.ErrStore, err)
		}
		chunks = int(count)
	}
	return s.composeStats(ctx, chunks)
}

// composeStats 合并向量库片段数与登记表文档数
func (s *QdrantStore) composeStats(ctx context.Context, chunks int) (*domainRAG.Stats, error) {
	documents, _, err := s.documents.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &domainRAG.Stats{Documents: documents, Chunks: chunks}, nil
}

// ensureCollection 集合不存在时按向量维度创建，存在时校验维度
func (s *QdrantStore) ensureCollection(ctx context.Context, client *qdrant.Client, dim uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 {
		if s.dimension != dim {
			return fmt.Errorf("%w: collection %s expects dimension %d, got %d", domainRAG.ErrStore, s.collection, s.dimension, dim)
		}
		return nil
	}

	exists, err := client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: failed to check collection: %v", domainRAG.ErrStore, err)
	}

	if !exists {
		err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dim,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to create collection %s: %v", domainRAG.ErrStore, s.collection, err)
		}
		s.logger.Info("Collection created",
			"collection", s.collection,
			"dimension", dim,
		)
		s.dimension = dim
		return nil
	}

	info, err := client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: failed to get collection info: %v", domainRAG.ErrStore, err)
	}
	existing := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if existing != 0 && existing != dim {
		return fmt.Errorf("%w: collection %s expects dimension %d, got %d (embedding model changed? run clear)",
			domainRAG.ErrStore, s.collection, existing, dim)
	}
	s.dimension = dim
	return nil
}

// sortAndLimit 按相似度降序稳定排序并截断到 k 条
func sortAndLimit(results *[]domainRAG.ScoredChunk, k int) {
	r := *results
	sort.SliceStable(r, func(i, j int) bool {
		return r[i].Score > r[j].Score
	})
	if len(r) > k {
		r = r[:k]
	}
	*results = r
}
