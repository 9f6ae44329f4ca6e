package middleware

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// maxTranscodeBody 超过该大小的请求体不做转码
const maxTranscodeBody = 1 << 20

// EnsureUTF8Body 把非 UTF-8 的 JSON 请求体按 GBK 转码
// Windows 中文终端里的 curl 会以 GBK 发送问题文本；上传的 multipart 文件不受影响
func EnsureUTF8Body() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isJSON(c.ContentType()) || c.Request.Body == nil ||
			c.Request.ContentLength == 0 || c.Request.ContentLength > maxTranscodeBody {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTranscodeBody+1))
		c.Request.Body.Close()
		if err != nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			c.Next()
			return
		}

		if !utf8.Valid(body) {
			if converted, err := convertGBKToUTF8(body); err == nil && utf8.Valid(converted) {
				body = converted
				c.Request.ContentLength = int64(len(body))
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

// convertGBKToUTF8 将 GBK 编码的字节转换为 UTF-8
func convertGBKToUTF8(gbkBytes []byte) ([]byte, error) {
	reader := transform.NewReader(bytes.NewReader(gbkBytes), simplifiedchinese.GBK.NewDecoder())
	return io.ReadAll(reader)
}
