package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pdfchat/pdfchat/internal/application/workspace"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/response"
)

// SessionHandler 会话管理与问答
type SessionHandler struct {
	workspace *workspace.Manager
	logger    *slog.Logger
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(ws *workspace.Manager) *SessionHandler {
	return &SessionHandler{
		workspace: ws,
		logger:    log.NewModuleLogger("http", "session_handler"),
	}
}

// CreateSessionRequest 新建会话请求
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// AskRequest 提问请求
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Create 新建会话，请求体可省略
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request body", err.Error())
			return
		}
	}
	session, err := h.workspace.CreateSession(c.Request.Context(), req.Name)
	if err != nil {
		response.FromError(c, "failed to create session", err)
		return
	}
	response.Success(c, session.Summary())
}

// List 会话列表，最近更新的在前
// GET /api/v1/sessions?limit=
func (h *SessionHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	sessions, err := h.workspace.ListSessions(c.Request.Context(), limit)
	if err != nil {
		response.FromError(c, "failed to list sessions", err)
		return
	}
	response.Success(c, sessions)
}

// Get 完整会话
// GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.workspace.LoadSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "failed to load session", err)
		return
	}
	response.Success(c, session)
}

// Delete 删除会话
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.workspace.DeleteSession(c.Request.Context(), id); err != nil {
		response.FromError(c, "failed to delete session", err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// Ask 在会话中提问
// POST /api/v1/sessions/:id/messages
func (h *SessionHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeInvalidRequest, "question is required", err.Error())
		return
	}

	id := c.Param("id")
	ctx := log.WithSessionID(c.Request.Context(), id)
	answer, err := h.workspace.Ask(ctx, id, req.Question)
	if err != nil {
		h.logger.Warn("Question failed", append(log.LogCtxFromContext(ctx), "error", err)...)
		response.FromError(c, "failed to answer question", err)
		return
	}
	response.Success(c, answer)
}
