package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
)

func newTestClient(url string, batchSize int) *Client {
	return NewClient(
		&config.OllamaConfig{BaseURL: url, EmbeddingModel: "nomic-embed-text"},
		&config.EmbeddingConfig{BatchSize: batchSize},
	)
}

func TestBuildEmbeddingURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://localhost:11434", "http://localhost:11434/v1/embeddings"},
		{"http://localhost:11434/v1", "http://localhost:11434/v1/embeddings"},
		{"http://host/v1/embeddings", "http://host/v1/embeddings"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, buildEmbeddingURL(tt.input))
	}
}

func TestEmbedTexts_BatchesPreserveOrder(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)

		// 倒序返回，客户端按 index 还原
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: []float32{float32(len(req.Input[i]))}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	vectors, err := client.EmbedTexts(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1}, {2}, {3}}, vectors)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEmbedTexts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"服务端错误", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		}},
		{"响应格式错误", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}},
		{"向量数量不符", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}},
		{"空向量", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"embedding":[],"index":0}]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestClient(server.URL, 8).EmbedTexts(context.Background(), []string{"x"})
			assert.ErrorIs(t, err, domainRAG.ErrEmbedding)
		})
	}
}

func TestEmbedTexts_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url, 8).EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domainRAG.ErrEmbedding)
}

func TestEmbedTexts_NoRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, 8).EmbedTexts(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEmbedTexts_Empty(t *testing.T) {
	_, err := newTestClient("http://localhost:1", 8).EmbedTexts(context.Background(), nil)
	assert.ErrorIs(t, err, domainRAG.ErrEmbedding)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a\n\n b\t\x00c  "))
}
