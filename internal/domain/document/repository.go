package document

import "context"

// Repository 已索引文档登记仓库
type Repository interface {
	// Save 新增或覆盖一条登记
	Save(ctx context.Context, doc *IndexedDocument) error
	// FindByName 按文件名查找，不存在返回 ErrDocumentNotFound
	FindByName(ctx context.Context, fileName string) (*IndexedDocument, error)
	// List 按索引时间倒序列出
	List(ctx context.Context) ([]*IndexedDocument, error)
	// Count 返回文档数与片段总数
	Count(ctx context.Context) (documents int, chunks int, err error)
	// Delete 删除单条登记
	Delete(ctx context.Context, fileName string) error
	// Clear 清空登记
	Clear(ctx context.Context) error
}
