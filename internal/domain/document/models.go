package document

import "time"

// Page 单页文本
type Page struct {
	Number int    // 页码，从 1 开始
	Text   string // 去除首尾空白后的页文本
}

// Chunk 文档片段，检索与向量化的最小单位
type Chunk struct {
	ID       string // 由 file|page|sequence 派生的确定性 UUID，同时作为 Qdrant point_id
	FileName string // 源文件名（不含目录）
	FilePath string // 源文件路径
	Page     int    // 页码，从 1 开始
	Sequence int    // 在整个文档中的序号
	Text     string
	Tokens   int    // 片段包含的分块单位数
	Overlap  string // 与同页上一片段共享的前缀
}

// IndexedDocument 已索引文档登记信息
type IndexedDocument struct {
	FileName    string
	FilePath    string
	ContentHash string // 文件内容 SHA-256
	PageCount   int
	ChunkCount  int
	IndexedAt   time.Time
}

// NeedsReindex 内容哈希变化时需要重新索引
func (d *IndexedDocument) NeedsReindex(newHash string) bool {
	return d.ContentHash != newHash
}
