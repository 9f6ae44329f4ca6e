package pdf

import "github.com/google/wire"

// ProviderSet PDF 基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	NewExtractor,
)
