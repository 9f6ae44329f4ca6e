package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// Client Ollama Embedding 客户端（OpenAI 兼容接口）
type Client struct {
	baseURL    string
	model      string
	batchSize  int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domainRAG.Embedder = (*Client)(nil)

// NewClient 创建 Embedding 客户端
func NewClient(ollama *config.OllamaConfig, embedding *config.EmbeddingConfig) *Client {
	batchSize := embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Client{
		baseURL:   strings.TrimSuffix(ollama.BaseURL, "/"),
		model:     ollama.EmbeddingModel,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: time.Duration(ollama.TimeoutSecs) * time.Second,
		},
		logger: log.NewModuleLogger("embedding", "client"),
	}
}

// buildEmbeddingURL 构建 Embedding API URL
// 支持多种输入格式，智能拼接 /v1/embeddings 路径
func buildEmbeddingURL(baseURL string) string {
	switch {
	case strings.Contains(baseURL, "/v1/embeddings"):
		return baseURL
	case strings.HasSuffix(baseURL, "/v1"):
		return baseURL + "/embeddings"
	default:
		return baseURL + "/v1/embeddings"
	}
}

// EmbeddingRequest Embedding 请求
type EmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// EmbeddingResponse Embedding 响应
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// EmbedTexts 分批向量化文本，结果顺序与输入一致
// 不做自动重试，失败直接返回
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", domainRAG.ErrEmbedding)
	}

	allVectors := make([][]float32, 0, len(texts))
	totalBatches := (len(texts) + c.batchSize - 1) / c.batchSize

	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		batchNum := i/c.batchSize + 1

		c.logger.Debug("Processing batch",
			"batch", batchNum,
			"total_batches", totalBatches,
			"batch_size", end-i,
		)

		vectors, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			c.logger.Error("Failed to embed batch",
				"batch", batchNum,
				"error", err,
			)
			return nil, err
		}
		allVectors = append(allVectors, vectors...)
	}

	return allVectors, nil
}

// embedBatch 处理单个批次
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = cleanText(t)
	}

	jsonData, err := json.Marshal(EmbeddingRequest{Model: c.model, Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", domainRAG.ErrEmbedding, err)
	}

	url := buildEmbeddingURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domainRAG.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to send request to %s: %v", domainRAG.ErrEmbedding, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("API returned error",
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return nil, fmt.Errorf("%w: API returned status %d: %s", domainRAG.ErrEmbedding, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var embeddingResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domainRAG.ErrEmbedding, err)
	}
	if len(embeddingResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d vectors, got %d", domainRAG.ErrEmbedding, len(texts), len(embeddingResp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, data := range embeddingResp.Data {
		if data.Index < 0 || data.Index >= len(texts) || vectors[data.Index] != nil {
			return nil, fmt.Errorf("%w: invalid vector index %d", domainRAG.ErrEmbedding, data.Index)
		}
		if len(data.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty vector at index %d", domainRAG.ErrEmbedding, data.Index)
		}
		vectors[data.Index] = data.Embedding
	}

	return vectors, nil
}

// TestConnection 测试连接，返回向量维度
func (c *Client) TestConnection(ctx context.Context) (int, error) {
	vectors, err := c.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		c.logger.Error("Embedding API connection test failed",
			"base_url", c.baseURL,
			"model", c.model,
			"error", err,
		)
		return 0, err
	}

	c.logger.Info("Embedding API connection test successful",
		"model", c.model,
		"vector_dimension", len(vectors[0]),
	)
	return len(vectors[0]), nil
}

// cleanText 合并连续空白并去除控制字符
func cleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}
