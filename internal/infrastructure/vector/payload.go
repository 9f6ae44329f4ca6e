package vector

import (
	"github.com/qdrant/go-client/qdrant"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
)

// payload 字段名
const (
	payloadFileName = "filename"
	payloadFilePath = "filepath"
	payloadPage     = "page"
	payloadSequence = "sequence"
	payloadText     = "text"
	payloadTokens   = "tokens"
)

// chunkPayload 片段元数据写入 payload
func chunkPayload(c *domainDocument.Chunk) map[string]any {
	return map[string]any{
		payloadFileName: c.FileName,
		payloadFilePath: c.FilePath,
		payloadPage:     int64(c.Page),
		payloadSequence: int64(c.Sequence),
		payloadText:     c.Text,
		payloadTokens:   int64(c.Tokens),
	}
}

// chunkFromPayload 从 payload 还原片段
func chunkFromPayload(id string, payload map[string]*qdrant.Value) *domainDocument.Chunk {
	return &domainDocument.Chunk{
		ID:       id,
		FileName: extractStringValue(payload[payloadFileName]),
		FilePath: extractStringValue(payload[payloadFilePath]),
		Page:     int(extractIntValue(payload[payloadPage])),
		Sequence: int(extractIntValue(payload[payloadSequence])),
		Text:     extractStringValue(payload[payloadText]),
		Tokens:   int(extractIntValue(payload[payloadTokens])),
	}
}

// extractStringValue 从 qdrant.Value 提取字符串值
func extractStringValue(val *qdrant.Value) string {
	if val == nil {
		return ""
	}
	return val.GetStringValue()
}

// extractIntValue 从 qdrant.Value 提取整数值
func extractIntValue(val *qdrant.Value) int64 {
	if val == nil {
		return 0
	}
	if v, ok := val.GetKind().(*qdrant.Value_IntegerValue); ok {
		return v.IntegerValue
	}
	if v, ok := val.GetKind().(*qdrant.Value_DoubleValue); ok {
		return int64(v.DoubleValue)
	}
	return 0
}
