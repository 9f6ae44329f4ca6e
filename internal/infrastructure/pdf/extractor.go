package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// Extractor 基于 ledongthuc/pdf 的逐页文本提取器
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor 创建提取器
func NewExtractor() *Extractor {
	return &Extractor{
		logger: log.NewModuleLogger("pdf", "extractor"),
	}
}

// Extract 按页序返回非空页文本
// 空白页被跳过；打不开或没有任何一页有文本时返回 ErrExtraction
func (e *Extractor) Extract(ctx context.Context, path string) (pages []domainDocument.Page, err error) {
	name := filepath.Base(path)

	// 解析器遇到损坏的文件会 panic
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w: %s: malformed pdf: %v", domainDocument.ErrExtraction, name, rec)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domainDocument.ErrExtraction, name, err)
	}
	defer f.Close()

	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Failed to extract page text, skipping page",
				"file", name,
				"page", i,
				"error", err,
			)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			e.logger.Warn("Page has no extractable text, skipping page",
				"file", name,
				"page", i,
			)
			continue
		}
		pages = append(pages, domainDocument.Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s: no extractable text in %d pages", domainDocument.ErrExtraction, name, total)
	}

	e.logger.Debug("PDF extracted",
		"file", name,
		"pages_total", total,
		"pages_with_text", len(pages),
	)
	return pages, nil
}
