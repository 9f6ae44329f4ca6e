package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

func echoRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(EnsureUTF8Body())
	router.POST("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusOK, "text/plain", body)
	})
	return router
}

func TestEnsureUTF8Body(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(`{"question":"收入增长了多少"}`))
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		body        []byte
		want        []byte
	}{
		{name: "UTF-8 原样保留", contentType: "application/json", body: []byte(`{"question":"收入"}`), want: []byte(`{"question":"收入"}`)},
		{name: "GBK 转为 UTF-8", contentType: "application/json; charset=gbk", body: gbk, want: []byte(`{"question":"收入增长了多少"}`)},
		{name: "非 JSON 不处理", contentType: "application/octet-stream", body: gbk, want: gbk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			echoRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.Bytes())
		})
	}
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(log.NewModuleLogger("http", "test")))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "%v", log.LogCtxFromContext(c.Request.Context()))
	})

	t.Run("生成新 ID", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := w.Header().Get(RequestIDHeader)
		require.NotEmpty(t, id)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("沿用客户端 ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Contains(t, w.Body.String(), "req-42")
	})
}
