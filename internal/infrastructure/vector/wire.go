package vector

import (
	"github.com/google/wire"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// ProviderSet 向量库 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideQdrantManager,
	NewQdrantStore,
	wire.Bind(new(domainRAG.VectorStore), new(*QdrantStore)),
)

// ProvideQdrantManager 提供 Qdrant 管理器，清理时关闭连接并停止本地进程
func ProvideQdrantManager(cfg *config.Config) (*QdrantManager, func()) {
	manager := NewQdrantManager(cfg)
	return manager, func() {
		if err := manager.Stop(); err != nil {
			log.NewModuleLogger("vector", "qdrant_manager").Warn("Failed to stop qdrant", "error", err)
		}
	}
}
