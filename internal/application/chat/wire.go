package chat

import "github.com/google/wire"

// ProviderSet 问答服务
var ProviderSet = wire.NewSet(
	NewEngine,
	NewService,
)
