package history

import "github.com/google/wire"

// ProviderSet 会话历史服务
var ProviderSet = wire.NewSet(NewManager)
