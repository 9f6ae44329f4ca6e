package document

import "errors"

// 文档处理相关错误
var (
	// ErrExtraction 无法打开或没有可提取文本的 PDF
	ErrExtraction = errors.New("pdf extraction failed")

	// ErrInvalidFile 上传路径不存在或不是 PDF 文件
	ErrInvalidFile = errors.New("invalid pdf file")

	// ErrInvalidChunking 分块参数非法
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrDocumentNotFound 登记表中不存在该文档
	ErrDocumentNotFound = errors.New("document not found")
)
