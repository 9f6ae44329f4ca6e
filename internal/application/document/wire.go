package document

import "github.com/google/wire"

// ProviderSet 文档处理与索引服务
var ProviderSet = wire.NewSet(
	NewChunker,
	NewProcessor,
	NewIngestService,
	NewWatchService,
)
