package vector

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
)

func embedded(file string, page, seq int, vec ...float32) domainRAG.EmbeddedChunk {
	return domainRAG.EmbeddedChunk{
		Chunk: &domainDocument.Chunk{
			ID:       domainDocument.ChunkID(file, page, seq),
			FileName: file,
			Page:     page,
			Sequence: seq,
			Text:     "text",
		},
		Vector: vec,
	}
}

func TestChunkPayloadRoundTrip(t *testing.T) {
	chunk := &domainDocument.Chunk{
		ID:       domainDocument.ChunkID("a.pdf", 3, 9),
		FileName: "a.pdf",
		FilePath: "/docs/a.pdf",
		Page:     3,
		Sequence: 9,
		Text:     "hello",
		Tokens:   1,
	}

	got := chunkFromPayload(chunk.ID, qdrant.NewValueMap(chunkPayload(chunk)))
	assert.Equal(t, chunk, got)
}

func TestExtractValues_Nil(t *testing.T) {
	assert.Equal(t, "", extractStringValue(nil))
	assert.Equal(t, int64(0), extractIntValue(nil))
}

func TestMemoryStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	chunks := []domainRAG.EmbeddedChunk{
		embedded("a.pdf", 1, 0, 1, 0),
		embedded("a.pdf", 1, 1, 0, 1),
	}

	n, err := store.Upsert(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.Upsert(ctx, chunks)
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domainRAG.Stats{Documents: 1, Chunks: 2}, stats)
}

func TestMemoryStore_QuerySortedAndLimited(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Upsert(ctx, []domainRAG.EmbeddedChunk{
		embedded("a.pdf", 1, 0, 1, 0),
		embedded("a.pdf", 2, 1, 0.7, 0.7),
		embedded("b.pdf", 1, 0, 0, 1),
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		k        int
		expected int
	}{
		{"k 小于记录数", 2, 2},
		{"k 大于记录数", 10, 3},
		{"k 为零", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Query(ctx, []float32{1, 0}, tt.k)
			require.NoError(t, err)
			require.Len(t, results, tt.expected)
			for i := 1; i < len(results); i++ {
				assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
			}
			if tt.expected > 0 {
				assert.Equal(t, 1, results[0].Chunk.Page)
				assert.Equal(t, "a.pdf", results[0].Chunk.FileName)
			}
		})
	}
}

func TestMemoryStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Upsert(ctx, []domainRAG.EmbeddedChunk{
		embedded("a.pdf", 1, 0, 1, 0),
		embedded("b.pdf", 1, 0, 0, 1),
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteByFile(ctx, "a.pdf"))
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Chunks)

	require.NoError(t, store.Clear(ctx))
	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)

	results, err := store.Query(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Upsert(ctx, []domainRAG.EmbeddedChunk{embedded("a.pdf", 1, 0, 1, 0)})
	require.NoError(t, err)

	_, err = store.Upsert(ctx, []domainRAG.EmbeddedChunk{embedded("a.pdf", 1, 1, 1, 0, 0)})
	assert.ErrorIs(t, err, domainRAG.ErrStore)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}

func TestQdrantManager_ResolveBinary(t *testing.T) {
	q := &QdrantManager{cfg: &config.QdrantConfig{BinaryPath: "/nonexistent/qdrant"}}
	_, err := q.resolveBinary()
	assert.Error(t, err)
}

func TestMemoryStore_CountByFile(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Upsert(ctx, []domainRAG.EmbeddedChunk{
		embedded("a.pdf", 1, 0, 1, 0),
		embedded("a.pdf", 2, 1, 0, 1),
		embedded("b.pdf", 1, 0, 1, 1),
	})
	require.NoError(t, err)

	n, err := store.CountByFile(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.CountByFile(ctx, "missing.pdf")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
