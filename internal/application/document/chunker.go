package document

import (
	"fmt"
	"strings"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/tokenizer"
)

// UnitSplitter 把文本切成可拼回原文的单元
type UnitSplitter interface {
	Split(text string) []string
	Unit() string
}

// Segment 单页内的一个分块
type Segment struct {
	Text    string
	Overlap string // 与上一分块共享的前缀，首块为空
	Units   int
}

// Chunker 按单元滑动窗口分块
// 窗口长度为 size，相邻窗口恰好共享 overlap 个单元，只在单页文本内切分
type Chunker struct {
	splitter UnitSplitter
	size     int
	overlap  int
}

// NewChunker 按配置创建分块器
func NewChunker(cfg *config.ChunkingConfig) (*Chunker, error) {
	splitter, err := tokenizer.NewSplitter(cfg.Unit)
	if err != nil {
		return nil, err
	}
	return NewChunkerWithSplitter(splitter, cfg.Size, cfg.Overlap)
}

// NewChunkerWithSplitter 使用指定切分器创建分块器
func NewChunkerWithSplitter(splitter UnitSplitter, size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", domainDocument.ErrInvalidChunking, size, overlap)
	}
	return &Chunker{splitter: splitter, size: size, overlap: overlap}, nil
}

// Unit 分块单位名称
func (c *Chunker) Unit() string {
	return c.splitter.Unit()
}

// Chunk 对单页文本分块
// 去掉每个非首块的 Overlap 前缀后按序拼接，恰好还原原文
func (c *Chunker) Chunk(text string) []Segment {
	return chunkUnits(c.splitter.Split(text), c.size, c.overlap)
}

func chunkUnits(units []string, size, overlap int) []Segment {
	if len(units) == 0 {
		return nil
	}

	var segments []Segment
	start := 0
	for {
		end := min(start+size, len(units))
		seg := Segment{
			Text:  strings.Join(units[start:end], ""),
			Units: end - start,
		}
		if start > 0 {
			seg.Overlap = strings.Join(units[start:start+overlap], "")
		}
		segments = append(segments, seg)

		if end == len(units) {
			return segments
		}
		start = end - overlap
	}
}
