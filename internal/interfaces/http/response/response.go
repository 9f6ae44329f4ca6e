package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
)

// 业务错误码
const (
	CodeSuccess        = 0
	CodeInvalidRequest = 400001
	CodeNotFound       = 404001
	CodeCanceled       = 499001
	CodeInternal       = 500001
	CodeUpstream       = 502001
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
	})
}

// ErrorWithDetail 带详情的错误响应
func ErrorWithDetail(c *gin.Context, httpCode int, errCode int, message, detail string) {
	c.JSON(httpCode, ErrorResponse{
		Code:    errCode,
		Message: message,
		Detail:  detail,
	})
}

// Status 把领域错误映射为 HTTP 状态码与业务错误码
func Status(err error) (httpCode int, errCode int) {
	switch {
	case errors.Is(err, domainChat.ErrSessionNotFound),
		errors.Is(err, domainDocument.ErrDocumentNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domainChat.ErrEmptyQuestion),
		errors.Is(err, domainDocument.ErrInvalidFile),
		errors.Is(err, domainDocument.ErrExtraction):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, domainRAG.ErrEmbedding),
		errors.Is(err, domainRAG.ErrChatModel),
		errors.Is(err, domainRAG.ErrStore):
		return http.StatusBadGateway, CodeUpstream
	case errors.Is(err, context.Canceled):
		return 499, CodeCanceled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// FromError 按领域错误写出错误响应
func FromError(c *gin.Context, message string, err error) {
	httpCode, errCode := Status(err)
	ErrorWithDetail(c, httpCode, errCode, message, err.Error())
}
