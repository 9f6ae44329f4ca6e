package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pdfchat/pdfchat/internal/application/workspace"
	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
	infraWS "github.com/pdfchat/pdfchat/internal/infrastructure/websocket"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/response"
)

// 流式帧类型
const (
	FrameDelta = "delta"
	FrameDone  = "done"
	FrameError = "error"
)

// StreamRequest 客户端提问帧
type StreamRequest struct {
	Question string `json:"question"`
}

// StreamFrame 服务端推送帧
type StreamFrame struct {
	Type      string                `json:"type"`
	Text      string                `json:"text,omitempty"`
	Answer    string                `json:"answer,omitempty"`
	Citations []domainChat.Citation `json:"citations,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// StreamHandler 基于 WebSocket 的流式问答
type StreamHandler struct {
	workspace *workspace.Manager
	logger    *slog.Logger
}

// NewStreamHandler 创建流式问答处理器
func NewStreamHandler(ws *workspace.Manager) *StreamHandler {
	return &StreamHandler{
		workspace: ws,
		logger:    log.NewModuleLogger("http", "stream_handler"),
	}
}

// Stream 每收到一个提问帧，推送若干 delta 帧，最后一个 done 或 error 帧
// 客户端断开时取消进行中的回答，本轮不会写入历史
// GET /api/v1/sessions/:id/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.workspace.LoadSession(c.Request.Context(), id); err != nil {
		response.FromError(c, "failed to load session", err)
		return
	}

	conn, err := infraWS.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade stream connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(log.WithSessionID(context.Background(), id))
	defer cancel()

	requests := make(chan StreamRequest)
	go func() {
		// 读端出错即视为客户端断开
		defer cancel()
		defer close(requests)
		for {
			var req StreamRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for req := range requests {
		if err := h.answer(ctx, conn, id, req.Question); err != nil {
			h.logger.Debug("Stream connection closed", append(log.LogCtxFromContext(ctx), "error", err)...)
			return
		}
	}
}

// answer 处理一次提问，只有写失败时返回错误
func (h *StreamHandler) answer(ctx context.Context, conn *websocket.Conn, sessionID, question string) error {
	var writeErr error
	write := func(frame StreamFrame) {
		if writeErr != nil {
			return
		}
		writeErr = conn.WriteJSON(frame)
	}

	if strings.TrimSpace(question) == "" {
		write(StreamFrame{Type: FrameError, Error: domainChat.ErrEmptyQuestion.Error()})
		return writeErr
	}

	answer, err := h.workspace.AskStream(ctx, sessionID, question, func(delta string) {
		write(StreamFrame{Type: FrameDelta, Text: delta})
	})
	if err != nil {
		h.logger.Warn("Streamed question failed", append(log.LogCtxFromContext(ctx), "error", err)...)
		write(StreamFrame{Type: FrameError, Error: err.Error()})
		return writeErr
	}
	write(StreamFrame{Type: FrameDone, Answer: answer.Text, Citations: answer.Citations})
	return writeErr
}
