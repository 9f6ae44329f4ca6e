package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
)

// 确保 DocumentRepositoryImpl 实现了 domainDocument.Repository 接口
var _ domainDocument.Repository = (*DocumentRepositoryImpl)(nil)

// DocumentRepositoryImpl 已索引文档登记实现
type DocumentRepositoryImpl struct {
	db *sql.DB
}

// NewDocumentRepository 创建文档登记仓库实例
func NewDocumentRepository(db *sql.DB) *DocumentRepositoryImpl {
	return &DocumentRepositoryImpl{db: db}
}

// Save 新增或覆盖登记
func (r *DocumentRepositoryImpl) Save(ctx context.Context, doc *domainDocument.IndexedDocument) error {
	query := `
		INSERT OR REPLACE INTO documents (
			file_name, file_path, content_hash, page_count, chunk_count, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		doc.FileName,
		doc.FilePath,
		doc.ContentHash,
		doc.PageCount,
		doc.ChunkCount,
		doc.IndexedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// FindByName 按文件名查找
func (r *DocumentRepositoryImpl) FindByName(ctx context.Context, fileName string) (*domainDocument.IndexedDocument, error) {
	query := `
		SELECT file_name, file_path, content_hash, page_count, chunk_count, indexed_at
		FROM documents
		WHERE file_name = ?`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, fileName))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domainDocument.ErrDocumentNotFound, fileName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// List 按索引时间倒序列出
func (r *DocumentRepositoryImpl) List(ctx context.Context) ([]*domainDocument.IndexedDocument, error) {
	query := `
		SELECT file_name, file_path, content_hash, page_count, chunk_count, indexed_at
		FROM documents
		ORDER BY indexed_at DESC, file_name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var results []*domainDocument.IndexedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		results = append(results, doc)
	}
	return results, rows.Err()
}

// Count 返回文档数与片段总数
func (r *DocumentRepositoryImpl) Count(ctx context.Context) (int, int, error) {
	var documents, chunks int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(chunk_count), 0) FROM documents`,
	).Scan(&documents, &chunks)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return documents, chunks, nil
}

// Delete 删除单条登记
func (r *DocumentRepositoryImpl) Delete(ctx context.Context, fileName string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE file_name = ?`, fileName); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Clear 清空登记
func (r *DocumentRepositoryImpl) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domainDocument.IndexedDocument, error) {
	var (
		doc       domainDocument.IndexedDocument
		indexedAt int64
	)
	if err := row.Scan(&doc.FileName, &doc.FilePath, &doc.ContentHash,
		&doc.PageCount, &doc.ChunkCount, &indexedAt); err != nil {
		return nil, err
	}
	doc.IndexedAt = time.Unix(0, indexedAt)
	return &doc, nil
}
