package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 20
	maxPassageRunes    = 400
)

// SearchDocumentsInput 文档检索工具输入
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"Search query in natural language (required)"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of passages to return, defaults to 5, max 20"`
}

// SearchDocumentsOutput 文档检索工具输出
type SearchDocumentsOutput struct {
	Results    []*PassageResult `json:"results" jsonschema:"Matching passages ordered by similarity"`
	TotalCount int              `json:"total_count" jsonschema:"Number of passages returned"`
}

// PassageResult 检索到的片段
type PassageResult struct {
	FileName  string  `json:"filename" jsonschema:"Source PDF file name"`
	Page      int     `json:"page" jsonschema:"1-based page number"`
	Score     float32 `json:"score" jsonschema:"Cosine similarity"`
	Relevance string  `json:"relevance" jsonschema:"Relevance level: high/medium/low"`
	Text      string  `json:"text" jsonschema:"Passage text, truncated"`
}

// searchDocumentsTool 文档检索工具实现
func (s *MCPServer) searchDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchDocumentsInput,
) (*mcp.CallToolResult, SearchDocumentsOutput, error) {
	output := SearchDocumentsOutput{Results: []*PassageResult{}}

	if strings.TrimSpace(input.Query) == "" {
		return nil, output, fmt.Errorf("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := s.workspace.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, output, fmt.Errorf("search failed: %w", err)
	}
	for _, r := range results {
		output.Results = append(output.Results, &PassageResult{
			FileName:  r.Chunk.FileName,
			Page:      r.Chunk.Page,
			Score:     r.Score,
			Relevance: scoreToRelevance(r.Score),
			Text:      truncateRunes(r.Chunk.Text, maxPassageRunes),
		})
	}
	output.TotalCount = len(output.Results)

	// 返回 nil，SDK 会自动序列化 output
	return nil, output, nil
}

// ListDocumentsInput 文档列表工具输入（空输入）
type ListDocumentsInput struct{}

// ListDocumentsOutput 文档列表工具输出
type ListDocumentsOutput struct {
	Documents []*DocumentInfo `json:"documents" jsonschema:"Indexed documents"`
	Chunks    int             `json:"chunks" jsonschema:"Total number of indexed chunks"`
}

// DocumentInfo 已索引文档
type DocumentInfo struct {
	FileName  string `json:"filename" jsonschema:"PDF file name"`
	Pages     int    `json:"pages" jsonschema:"Pages with text"`
	Chunks    int    `json:"chunks" jsonschema:"Chunks stored for this file"`
	IndexedAt string `json:"indexed_at" jsonschema:"Index time in RFC3339"`
}

// listDocumentsTool 文档列表工具实现
func (s *MCPServer) listDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	output := ListDocumentsOutput{Documents: []*DocumentInfo{}}

	docs, err := s.workspace.Documents(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, d := range docs {
		output.Documents = append(output.Documents, &DocumentInfo{
			FileName:  d.FileName,
			Pages:     d.PageCount,
			Chunks:    d.ChunkCount,
			IndexedAt: d.IndexedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
		output.Chunks += d.ChunkCount
	}
	return nil, output, nil
}

// scoreToRelevance 将分数转换为相关性等级
func scoreToRelevance(score float32) string {
	if score >= 0.7 {
		return "high"
	}
	if score >= 0.4 {
		return "medium"
	}
	return "low"
}

// truncateRunes 按字符截断，避免切断多字节字符
func truncateRunes(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
