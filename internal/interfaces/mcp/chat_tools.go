package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
)

const defaultSessionLimit = 20

// AskDocumentsInput 问答工具输入
type AskDocumentsInput struct {
	Question  string `json:"question" jsonschema:"Question to answer from the indexed documents (required)"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Existing session id to continue, a new session is created when empty"`
}

// AskDocumentsOutput 问答工具输出
type AskDocumentsOutput struct {
	Answer    string                `json:"answer" jsonschema:"Answer generated by the chat model"`
	Citations []domainChat.Citation `json:"citations" jsonschema:"Cited document pages, empty when nothing relevant was found"`
	SessionID string                `json:"session_id" jsonschema:"Session holding this turn"`
}

// askDocumentsTool 问答工具实现
func (s *MCPServer) askDocumentsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskDocumentsInput,
) (*mcp.CallToolResult, AskDocumentsOutput, error) {
	output := AskDocumentsOutput{Citations: []domainChat.Citation{}}

	if strings.TrimSpace(input.Question) == "" {
		return nil, output, fmt.Errorf("question is required")
	}

	sessionID := input.SessionID
	if sessionID == "" {
		session, err := s.workspace.CreateSession(ctx, "mcp")
		if err != nil {
			return nil, output, fmt.Errorf("failed to create session: %w", err)
		}
		sessionID = session.ID
	}

	answer, err := s.workspace.Ask(ctx, sessionID, input.Question)
	if err != nil {
		return nil, output, fmt.Errorf("failed to answer: %w", err)
	}

	output.Answer = answer.Text
	if len(answer.Citations) > 0 {
		output.Citations = answer.Citations
	}
	output.SessionID = sessionID
	return nil, output, nil
}

// ListSessionsInput 会话列表工具输入
type ListSessionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of sessions, defaults to 20"`
}

// ListSessionsOutput 会话列表工具输出
type ListSessionsOutput struct {
	Sessions []domainChat.SessionSummary `json:"sessions" jsonschema:"Sessions, most recently updated first"`
}

// listSessionsTool 会话列表工具实现
func (s *MCPServer) listSessionsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	output := ListSessionsOutput{Sessions: []domainChat.SessionSummary{}}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	sessions, err := s.workspace.ListSessions(ctx, limit)
	if err != nil {
		return nil, output, fmt.Errorf("failed to list sessions: %w", err)
	}
	output.Sessions = append(output.Sessions, sessions...)
	return nil, output, nil
}
