package infrastructure

import (
	"github.com/google/wire"

	"github.com/pdfchat/pdfchat/internal/infrastructure/config"
	"github.com/pdfchat/pdfchat/internal/infrastructure/embedding"
	"github.com/pdfchat/pdfchat/internal/infrastructure/llm"
	"github.com/pdfchat/pdfchat/internal/infrastructure/pdf"
	"github.com/pdfchat/pdfchat/internal/infrastructure/storage"
	"github.com/pdfchat/pdfchat/internal/infrastructure/vector"
	"github.com/pdfchat/pdfchat/internal/infrastructure/watcher"
	"github.com/pdfchat/pdfchat/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	pdf.ProviderSet,
	embedding.ProviderSet,
	llm.ProviderSet,
	vector.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
)
