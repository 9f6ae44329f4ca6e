package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// Client Ollama Chat 客户端（OpenAI 兼容接口）
type Client struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ domainRAG.ChatModel = (*Client)(nil)

// ChatRequest Chat API 请求
type ChatRequest struct {
	Model       string              `json:"model"`
	Messages    []domainRAG.Message `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamChunk 流式响应中的一个事件
type StreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient 创建 LLM 客户端
func NewClient(ollama *config.OllamaConfig, chat *config.ChatConfig) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(ollama.BaseURL, "/"),
		model:       ollama.ChatModel,
		temperature: chat.Temperature,
		httpClient: &http.Client{
			Timeout: time.Duration(ollama.TimeoutSecs) * time.Second,
		},
		logger: log.NewModuleLogger("llm", "client"),
	}
}

// buildChatURL 构建 Chat Completions URL
func buildChatURL(baseURL string) string {
	switch {
	case strings.HasSuffix(baseURL, "/chat/completions"):
		return baseURL
	case strings.HasSuffix(baseURL, "/v1"):
		return baseURL + "/chat/completions"
	default:
		return baseURL + "/v1/chat/completions"
	}
}

// Complete 发送非流式请求并返回回答
func (c *Client) Complete(ctx context.Context, messages []domainRAG.Message) (string, error) {
	resp, err := c.send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", domainRAG.ErrChatModel, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", domainRAG.ErrChatModel)
	}

	c.logger.Debug("Chat completion finished",
		"model", c.model,
		"tokens", chatResp.Usage.TotalTokens,
	)
	return chatResp.Choices[0].Message.Content, nil
}

// Stream 发送流式请求，按顺序回调增量文本，返回完整回答
func (c *Client) Stream(ctx context.Context, messages []domainRAG.Message, onDelta func(string)) (string, error) {
	resp, err := c.send(ctx, messages, true)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return answer.String(), nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("%w: malformed stream event: %v", domainRAG.ErrChatModel, err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("%w: %s", domainRAG.ErrChatModel, chunk.Error.Message)
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			answer.WriteString(choice.Delta.Content)
			if onDelta != nil {
				onDelta(choice.Delta.Content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: failed to read stream: %v", domainRAG.ErrChatModel, err)
	}
	return "", fmt.Errorf("%w: stream ended without completion marker", domainRAG.ErrChatModel)
}

// send 发出请求并检查状态码
func (c *Client) send(ctx context.Context, messages []domainRAG.Message, stream bool) (*http.Response, error) {
	jsonData, err := json.Marshal(ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      stream,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", domainRAG.ErrChatModel, err)
	}

	url := buildChatURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", domainRAG.ErrChatModel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Sending chat request",
		"url", url,
		"model", c.model,
		"messages", len(messages),
		"stream", stream,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: request to %s failed: %v", domainRAG.ErrChatModel, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("Chat API returned error",
			"status_code", resp.StatusCode,
			"response_body", string(body),
		)
		return nil, fmt.Errorf("%w: API returned status %d: %s", domainRAG.ErrChatModel, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// TestConnection 测试对话模型连接
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Complete(ctx, []domainRAG.Message{
		{Role: domainRAG.MessageRoleUser, Content: "Reply with OK."},
	})
	if err != nil {
		c.logger.Error("Chat API connection test failed",
			"model", c.model,
			"error", err,
		)
		return err
	}
	return nil
}
