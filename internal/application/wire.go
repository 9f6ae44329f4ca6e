package application

import (
	"github.com/google/wire"

	"github.com/pdfchat/pdfchat/internal/application/chat"
	"github.com/pdfchat/pdfchat/internal/application/document"
	"github.com/pdfchat/pdfchat/internal/application/history"
	"github.com/pdfchat/pdfchat/internal/application/workspace"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	document.ProviderSet,
	history.ProviderSet,
	chat.ProviderSet,
	workspace.ProviderSet,
)
