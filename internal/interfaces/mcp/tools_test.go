package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfchat/pdfchat/internal/application/workspace/workspacetest"
)

func newTestServer(t *testing.T) (*MCPServer, *workspacetest.Fixture) {
	t.Helper()
	f := workspacetest.New(t)
	results := f.Manager.Upload(context.Background(), []string{
		f.WritePDF(t, "report.pdf", "Revenue grew in the third quarter.", "Battery life improved."),
	})
	require.NoError(t, results[0].Err)
	return NewServer(f.Manager), f
}

func TestSearchDocumentsTool(t *testing.T) {
	server, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		input     SearchDocumentsInput
		wantErr   bool
		wantCount int
	}{
		{name: "缺少查询", input: SearchDocumentsInput{Query: "  "}, wantErr: true},
		{name: "默认数量", input: SearchDocumentsInput{Query: "revenue"}, wantCount: 2},
		{name: "限制数量", input: SearchDocumentsInput{Query: "revenue", Limit: 1}, wantCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, out, err := server.searchDocumentsTool(ctx, nil, tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, out.TotalCount)
			require.Len(t, out.Results, tt.wantCount)
			assert.Equal(t, "report.pdf", out.Results[0].FileName)
			assert.Equal(t, 1, out.Results[0].Page)
			assert.Equal(t, "high", out.Results[0].Relevance)
		})
	}
}

func TestAskDocumentsTool(t *testing.T) {
	server, f := newTestServer(t)
	ctx := context.Background()

	_, out, err := server.askDocumentsTool(ctx, nil, AskDocumentsInput{Question: "What happened to revenue?"})
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew twelve percent.", out.Answer)
	require.NotEmpty(t, out.SessionID)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, 1, out.Citations[0].Page)

	// 继续同一会话
	_, again, err := server.askDocumentsTool(ctx, nil, AskDocumentsInput{Question: "And the battery?", SessionID: out.SessionID})
	require.NoError(t, err)
	assert.Equal(t, out.SessionID, again.SessionID)

	session, err := f.Manager.LoadSession(ctx, out.SessionID)
	require.NoError(t, err)
	assert.Len(t, session.Turns, 4)

	_, _, err = server.askDocumentsTool(ctx, nil, AskDocumentsInput{Question: "hi", SessionID: "missing"})
	assert.Error(t, err)

	_, _, err = server.askDocumentsTool(ctx, nil, AskDocumentsInput{})
	assert.Error(t, err)
}

func TestListTools(t *testing.T) {
	server, f := newTestServer(t)
	ctx := context.Background()

	_, docs, err := server.listDocumentsTool(ctx, nil, ListDocumentsInput{})
	require.NoError(t, err)
	require.Len(t, docs.Documents, 1)
	assert.Equal(t, "report.pdf", docs.Documents[0].FileName)
	assert.Equal(t, 2, docs.Documents[0].Pages)
	assert.Equal(t, 2, docs.Chunks)

	for i := 0; i < 3; i++ {
		_, err := f.Manager.CreateSession(ctx, "")
		require.NoError(t, err)
	}
	_, sessions, err := server.listSessionsTool(ctx, nil, ListSessionsInput{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, sessions.Sessions, 2)

	_, all, err := server.listSessionsTool(ctx, nil, ListSessionsInput{})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 3)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "收入...", truncateRunes("收入增长", 2))
}

func TestServerHandlers(t *testing.T) {
	server, _ := newTestServer(t)
	assert.NotNil(t, server.GetHandler())
}
