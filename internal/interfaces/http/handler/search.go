package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pdfchat/pdfchat/internal/application/workspace"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/response"
)

// maxSearchResults 单次检索上限
const maxSearchResults = 50

// SearchHandler 语义检索
type SearchHandler struct {
	workspace *workspace.Manager
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(ws *workspace.Manager) *SearchHandler {
	return &SearchHandler{workspace: ws}
}

// SearchResultDTO 检索结果
type SearchResultDTO struct {
	FileName string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float32 `json:"score"`
	Text     string  `json:"text"`
}

// Search 只检索不生成回答
// GET /api/v1/search?q=&k=
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "query parameter q is required")
		return
	}
	k := 0
	if raw := c.Query("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSearchResults {
			response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "k must be between 1 and 50")
			return
		}
		k = n
	}

	results, err := h.workspace.Search(c.Request.Context(), query, k)
	if err != nil {
		response.FromError(c, "search failed", err)
		return
	}
	dtos := make([]SearchResultDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, SearchResultDTO{
			FileName: r.Chunk.FileName,
			Page:     r.Chunk.Page,
			Score:    r.Score,
			Text:     r.Chunk.Text,
		})
	}
	response.Success(c, dtos)
}
