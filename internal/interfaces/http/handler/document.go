package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	appDocument "github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/workspace"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
	"github.com/pdfchat/pdfchat/internal/interfaces/http/response"
)

// DocumentHandler 文档上传、列表与统计
type DocumentHandler struct {
	workspace *workspace.Manager
	uploadDir string
	logger    *slog.Logger
}

// NewDocumentHandler 创建文档处理器
func NewDocumentHandler(ws *workspace.Manager, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		workspace: ws,
		uploadDir: cfg.UploadDir(),
		logger:    log.NewModuleLogger("http", "document_handler"),
	}
}

// UploadResultDTO 单个文件的上传结果
type UploadResultDTO struct {
	FileName string `json:"filename"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// DocumentDTO 已索引文档
type DocumentDTO struct {
	FileName  string    `json:"filename"`
	Pages     int       `json:"pages"`
	Chunks    int       `json:"chunks"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Upload 接收 multipart 字段 files 中的 PDF 并索引
// POST /api/v1/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.ErrorWithDetail(c, http.StatusBadRequest, response.CodeInvalidRequest, "multipart form required", err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "no files uploaded")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		response.FromError(c, "failed to prepare upload directory", err)
		return
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		// 只保留文件名，防止路径穿越
		dst := filepath.Join(h.uploadDir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			response.FromError(c, fmt.Sprintf("failed to save %s", fh.Filename), err)
			return
		}
		paths = append(paths, dst)
	}

	results := h.workspace.Upload(c.Request.Context(), paths)
	dtos := make([]UploadResultDTO, 0, len(results))
	for _, r := range results {
		dtos = append(dtos, toUploadDTO(r))
	}
	response.Success(c, dtos)
}

// List 已索引文档列表
// GET /api/v1/documents
func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.workspace.Documents(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to list documents", err)
		return
	}
	dtos := make([]DocumentDTO, 0, len(docs))
	for _, d := range docs {
		dtos = append(dtos, DocumentDTO{
			FileName:  d.FileName,
			Pages:     d.PageCount,
			Chunks:    d.ChunkCount,
			IndexedAt: d.IndexedAt,
		})
	}
	response.Success(c, dtos)
}

// Remove 从索引中移除单个文档
// DELETE /api/v1/documents/:name
func (h *DocumentHandler) Remove(c *gin.Context) {
	name := c.Param("name")
	if err := h.workspace.RemoveDocument(c.Request.Context(), name); err != nil {
		response.FromError(c, "failed to remove document", err)
		return
	}
	response.Success(c, gin.H{"filename": name})
}

// Stats 索引与会话统计
// GET /api/v1/stats
func (h *DocumentHandler) Stats(c *gin.Context) {
	stats, err := h.workspace.Stats(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to read stats", err)
		return
	}
	response.Success(c, stats)
}

// ClearAll 清空索引与全部会话
// DELETE /api/v1/data
func (h *DocumentHandler) ClearAll(c *gin.Context) {
	if err := h.workspace.ClearAll(c.Request.Context()); err != nil {
		response.FromError(c, "failed to clear data", err)
		return
	}
	h.logger.Info("All data cleared via API")
	response.Success(c, nil)
}

func toUploadDTO(r appDocument.UploadResult) UploadResultDTO {
	return UploadResultDTO{
		FileName: r.FileName,
		Pages:    r.Pages,
		Chunks:   r.Chunks,
		Skipped:  r.Skipped,
		Error:    r.Error(),
	}
}
