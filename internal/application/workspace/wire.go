package workspace

import "github.com/google/wire"

// ProviderSet 工作区门面 ProviderSet
var ProviderSet = wire.NewSet(
	NewManager,
)
