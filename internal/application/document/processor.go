package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
)

// PageExtractor 逐页提取 PDF 文本
type PageExtractor interface {
	Extract(ctx context.Context, path string) ([]domainDocument.Page, error)
}

// ProcessedFile 一个文件的分块结果
type ProcessedFile struct {
	FileName string
	FilePath string
	Pages    int // 有文本的页数
	Chunks   []*domainDocument.Chunk
}

// Processor PDF 处理器：提取 + 按页分块
type Processor struct {
	extractor PageExtractor
	chunker   *Chunker
}

// NewProcessor 创建处理器
func NewProcessor(extractor PageExtractor, chunker *Chunker) *Processor {
	return &Processor{extractor: extractor, chunker: chunker}
}

// ProcessFile 提取并分块，片段序号在整个文档内递增
func (p *Processor) ProcessFile(ctx context.Context, path string) (*ProcessedFile, error) {
	pages, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	result := &ProcessedFile{
		FileName: name,
		FilePath: path,
		Pages:    len(pages),
	}

	seq := 0
	for _, page := range pages {
		for _, seg := range p.chunker.Chunk(page.Text) {
			result.Chunks = append(result.Chunks, &domainDocument.Chunk{
				ID:       domainDocument.ChunkID(name, page.Number, seq),
				FileName: name,
				FilePath: path,
				Page:     page.Number,
				Sequence: seq,
				Text:     seg.Text,
				Tokens:   seg.Units,
				Overlap:  seg.Overlap,
			})
			seq++
		}
	}
	return result, nil
}

// ValidatePath 检查上传路径存在、是普通文件且后缀为 .pdf
func ValidatePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", domainDocument.ErrInvalidFile, path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s: file not found", domainDocument.ErrInvalidFile, path)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s: not a regular file", domainDocument.ErrInvalidFile, path)
	}
	if !strings.EqualFold(filepath.Ext(abs), ".pdf") {
		return "", fmt.Errorf("%w: %s: not a PDF file", domainDocument.ErrInvalidFile, path)
	}
	return abs, nil
}
