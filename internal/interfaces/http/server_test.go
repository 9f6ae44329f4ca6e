package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfchat/pdfchat/internal/application/workspace/workspacetest"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	infraWS "github.com/pdfchat/pdfchat/internal/infrastructure/websocket"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/handler"
)

type testEnv struct {
	server  *HTTPServer
	fixture *workspacetest.Fixture
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := workspacetest.New(t)
	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()

	hub := infraWS.NewHub()
	hub.Start()
	t.Cleanup(hub.Stop)

	server := NewServer(
		&cfg.Server,
		handler.NewDocumentHandler(f.Manager, cfg),
		handler.NewSessionHandler(f.Manager),
		handler.NewSearchHandler(f.Manager),
		handler.NewStreamHandler(f.Manager),
		hub,
		nil,
	)
	return &testEnv{server: server, fixture: f}
}

// do 发送请求并解析统一响应
func (e *testEnv) do(t *testing.T, method, path string, body []byte, contentType string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed), "响应应该是有效的 JSON: %s", w.Body.String())
	return w.Code, parsed
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	code, body := e.do(t, nethttp.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, nethttp.StatusOK, code)
	return body["data"].(map[string]any)["id"].(string)
}

func multipartBody(t *testing.T, files map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, nethttp.MethodGet, "/health", nil, "")
	assert.Equal(t, nethttp.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Documents(t *testing.T) {
	env := newTestEnv(t)

	t.Run("上传 PDF 与非 PDF", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{
			"report.pdf": "Revenue grew in the third quarter.\fBattery life improved.",
			"notes.txt":  "not a pdf",
		})
		code, resp := env.do(t, nethttp.MethodPost, "/api/v1/documents", body, contentType)
		require.Equal(t, nethttp.StatusOK, code)
		assert.Equal(t, 0, int(resp["code"].(float64)))

		results := resp["data"].([]any)
		require.Len(t, results, 2)
		byName := map[string]map[string]any{}
		for _, r := range results {
			m := r.(map[string]any)
			byName[m["filename"].(string)] = m
		}
		assert.Equal(t, 2, int(byName["report.pdf"]["chunks"].(float64)))
		assert.NotContains(t, byName["report.pdf"], "error")
		assert.Contains(t, byName["notes.txt"]["error"], "invalid pdf file")
	})

	t.Run("缺少文件", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{})
		code, resp := env.do(t, nethttp.MethodPost, "/api/v1/documents", body, contentType)
		assert.Equal(t, nethttp.StatusBadRequest, code)
		assert.NotEqual(t, 0, int(resp["code"].(float64)))
	})

	t.Run("列表与统计", func(t *testing.T) {
		code, resp := env.do(t, nethttp.MethodGet, "/api/v1/documents", nil, "")
		require.Equal(t, nethttp.StatusOK, code)
		docs := resp["data"].([]any)
		require.Len(t, docs, 1)
		assert.Equal(t, "report.pdf", docs[0].(map[string]any)["filename"])

		code, resp = env.do(t, nethttp.MethodGet, "/api/v1/stats", nil, "")
		require.Equal(t, nethttp.StatusOK, code)
		stats := resp["data"].(map[string]any)
		assert.Equal(t, 1, int(stats["documents"].(float64)))
		assert.Equal(t, 2, int(stats["chunks"].(float64)))
	})

	t.Run("清空全部数据", func(t *testing.T) {
		env.createSession(t)
		code, _ := env.do(t, nethttp.MethodDelete, "/api/v1/data", nil, "")
		require.Equal(t, nethttp.StatusOK, code)

		_, resp := env.do(t, nethttp.MethodGet, "/api/v1/stats", nil, "")
		stats := resp["data"].(map[string]any)
		assert.Equal(t, 0, int(stats["documents"].(float64)))
		assert.Equal(t, 0, int(stats["sessions"].(float64)))
	})
}

func TestServer_Sessions(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.Manager.Upload(t.Context(), []string{
		env.fixture.WritePDF(t, "report.pdf", "Revenue grew in the third quarter."),
	})
	id := env.createSession(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func()
		wantStatus int
		validate   func(t *testing.T, body map[string]any)
	}{
		{
			name:       "提问成功",
			method:     nethttp.MethodPost,
			path:       "/api/v1/sessions/" + id + "/messages",
			body:       `{"question":"How did revenue change?"}`,
			wantStatus: nethttp.StatusOK,
			validate: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "Revenue grew twelve percent.", data["answer"])
				citations := data["citations"].([]any)
				require.Len(t, citations, 1)
				assert.Equal(t, "report.pdf", citations[0].(map[string]any)["filename"])
			},
		},
		{
			name:       "缺少问题",
			method:     nethttp.MethodPost,
			path:       "/api/v1/sessions/" + id + "/messages",
			body:       `{}`,
			wantStatus: nethttp.StatusBadRequest,
		},
		{
			name:       "空白问题",
			method:     nethttp.MethodPost,
			path:       "/api/v1/sessions/" + id + "/messages",
			body:       `{"question":"   "}`,
			wantStatus: nethttp.StatusBadRequest,
		},
		{
			name:       "会话不存在",
			method:     nethttp.MethodPost,
			path:       "/api/v1/sessions/missing/messages",
			body:       `{"question":"revenue?"}`,
			wantStatus: nethttp.StatusNotFound,
		},
		{
			name:       "模型不可用",
			method:     nethttp.MethodPost,
			path:       "/api/v1/sessions/" + id + "/messages",
			body:       `{"question":"revenue?"}`,
			setup:      func() { env.fixture.Model.SetReply("", errors.New("connection refused")) },
			wantStatus: nethttp.StatusBadGateway,
		},
		{
			name:       "读取会话",
			method:     nethttp.MethodGet,
			path:       "/api/v1/sessions/" + id,
			wantStatus: nethttp.StatusOK,
			validate: func(t *testing.T, body map[string]any) {
				turns := body["data"].(map[string]any)["turns"].([]any)
				assert.Len(t, turns, 2, "失败的提问不写入历史")
			},
		},
		{
			name:       "会话列表",
			method:     nethttp.MethodGet,
			path:       "/api/v1/sessions?limit=10",
			wantStatus: nethttp.StatusOK,
			validate: func(t *testing.T, body map[string]any) {
				assert.Len(t, body["data"].([]any), 1)
			},
		},
		{
			name:       "非法 limit",
			method:     nethttp.MethodGet,
			path:       "/api/v1/sessions?limit=abc",
			wantStatus: nethttp.StatusBadRequest,
		},
		{
			name:       "删除会话",
			method:     nethttp.MethodDelete,
			path:       "/api/v1/sessions/" + id,
			wantStatus: nethttp.StatusOK,
		},
		{
			name:       "删除后读取",
			method:     nethttp.MethodGet,
			path:       "/api/v1/sessions/" + id,
			wantStatus: nethttp.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			var body []byte
			contentType := ""
			if tt.body != "" {
				body = []byte(tt.body)
				contentType = "application/json"
			}
			code, resp := env.do(t, tt.method, tt.path, body, contentType)
			assert.Equal(t, tt.wantStatus, code, "HTTP 状态码应该正确")
			if tt.wantStatus != nethttp.StatusOK {
				assert.NotEqual(t, 0, int(resp["code"].(float64)), "应该返回错误")
			}
			if tt.validate != nil {
				tt.validate(t, resp)
			}
		})
	}
}

func TestServer_Search(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.Manager.Upload(t.Context(), []string{
		env.fixture.WritePDF(t, "manual.pdf", "Press the power button.", "Warranty lasts two years."),
	})

	code, _ := env.do(t, nethttp.MethodGet, "/api/v1/search", nil, "")
	assert.Equal(t, nethttp.StatusBadRequest, code)

	code, _ = env.do(t, nethttp.MethodGet, "/api/v1/search?q=warranty&k=0", nil, "")
	assert.Equal(t, nethttp.StatusBadRequest, code)

	code, resp := env.do(t, nethttp.MethodGet, "/api/v1/search?q=warranty&k=1", nil, "")
	require.Equal(t, nethttp.StatusOK, code)
	results := resp["data"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	assert.Equal(t, "manual.pdf", first["filename"])
	assert.Equal(t, 2, int(first["page"].(float64)))
}

func TestServer_Stream(t *testing.T) {
	env := newTestEnv(t)
	env.fixture.Manager.Upload(t.Context(), []string{
		env.fixture.WritePDF(t, "report.pdf", "Revenue grew in the third quarter."),
	})
	id := env.createSession(t)

	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	t.Run("会话不存在时拒绝升级", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/api/v1/sessions/missing/stream", nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	})

	t.Run("增量帧后跟完成帧", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/api/v1/sessions/"+id+"/stream", nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(handler.StreamRequest{Question: "revenue?"}))

		var text strings.Builder
		var done handler.StreamFrame
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			var frame handler.StreamFrame
			require.NoError(t, conn.ReadJSON(&frame))
			if frame.Type == handler.FrameDelta {
				text.WriteString(frame.Text)
				continue
			}
			done = frame
			break
		}
		assert.Equal(t, handler.FrameDone, done.Type)
		assert.Equal(t, "Revenue grew twelve percent.", done.Answer)
		assert.Equal(t, done.Answer, text.String())
		require.Len(t, done.Citations, 1)

		// 同一连接上的空问题返回错误帧
		require.NoError(t, conn.WriteJSON(handler.StreamRequest{Question: " "}))
		var frame handler.StreamFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, handler.FrameError, frame.Type)
	})

	session, err := env.fixture.Manager.LoadSession(t.Context(), id)
	require.NoError(t, err)
	assert.Len(t, session.Turns, 2)
}
