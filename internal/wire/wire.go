//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"github.com/pdfchat/pdfchat/internal/application"
	appChat "github.com/pdfchat/pdfchat/internal/application/chat"
	appDocument "github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/history"
	"github.com/pdfchat/pdfchat/internal/application/workspace"
	"github.com/pdfchat/pdfchat/internal/infrastructure"
	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/embedding"
	"github.com/pdfchat/pdfchat/internal/infrastructure/llm"
	"github.com/pdfchat/pdfchat/internal/infrastructure/pdf"
	"github.com/pdfchat/pdfchat/internal/infrastructure/vector"
	"github.com/pdfchat/pdfchat/internal/interfaces"
)

// InitializeApp 按配置组装全部服务，返回的清理函数按相反顺序释放资源
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		// 应用层接口 -> 基础设施实现
		wire.Bind(new(appDocument.PageExtractor), new(*pdf.Extractor)),
		wire.Bind(new(appChat.SessionStore), new(*history.Manager)),
		wire.Bind(new(workspace.EmbeddingChecker), new(*embedding.Client)),
		wire.Bind(new(workspace.ChatModelChecker), new(*llm.Client)),
		wire.Bind(new(workspace.StoreChecker), new(*vector.QdrantManager)),
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil, nil
}
