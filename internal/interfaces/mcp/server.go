package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pdfchat/pdfchat/internal/application/workspace"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// ServerVersion MCP 服务端版本
const ServerVersion = "0.1.0"

// MCPServer MCP 服务器，暴露文档检索与问答工具
type MCPServer struct {
	server    *mcp.Server
	handler   http.Handler
	workspace *workspace.Manager
	logger    *slog.Logger
}

// NewServer 创建 MCP 服务器
func NewServer(ws *workspace.Manager) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "pdfchat",
			Version: ServerVersion,
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:    server,
		workspace: ws,
		logger:    log.NewModuleLogger("mcp", "server"),
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "search_documents",
		Description: `Semantic search over the PDF documents indexed by pdfchat.

Parameters:
- query (string, required): Natural language description of what you are looking for
- limit (int, optional): Maximum number of passages to return (1-20, default: 5)

Returns: Matching passages with file name, page number, similarity score and relevance level.`,
	}, mcpServer.searchDocumentsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_documents",
		Description: `Ask a question answered by the local chat model from the indexed PDF documents, with page citations.

Parameters:
- question (string, required): The question to answer
- session_id (string, optional): Continue an existing pdfchat session; a new session is created when omitted

Returns: answer text, cited pages and the session id holding this turn.`,
	}, mcpServer.askDocumentsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the PDF documents currently indexed by pdfchat with page and chunk counts. No parameters required.",
	}, mcpServer.listDocumentsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List pdfchat chat sessions, most recently updated first. Parameters: limit (int, optional) - maximum number of sessions, defaults to 20.",
	}, mcpServer.listSessionsTool)

	// 创建 SSE Handler
	mcpServer.handler = mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil,
	)
	return mcpServer
}

// GetHandler 获取 SSE HTTP Handler
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// RunStdio 通过标准输入输出提供服务，直到 ctx 取消或客户端断开
func (s *MCPServer) RunStdio(ctx context.Context) error {
	s.logger.Info("MCP stdio server starting")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
