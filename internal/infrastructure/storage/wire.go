package storage

import (
	"github.com/google/wire"

	domainChat "github.com/pdfchat/pdfchat/internal/domain/chat"
	domainDocument "github.com/pdfchat/pdfchat/internal/domain/document"
)

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,             // 提供数据库连接
	NewSessionRepository,  // 会话仓储
	NewDocumentRepository, // 已索引文档登记
	wire.Bind(new(domainChat.SessionRepository), new(*SessionRepositoryImpl)),
	wire.Bind(new(domainDocument.Repository), new(*DocumentRepositoryImpl)),
)
