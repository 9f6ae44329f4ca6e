package interfaces

import (
	"github.com/google/wire"

	"github.com/pdfchat/pdfchat/internal/interfaces/http"
	"github.com/pdfchat/pdfchat/internal/interfaces/mcp"
)

// ProviderSet Interfaces 层总 ProviderSet
var ProviderSet = wire.NewSet(
	http.ProviderSet,
	mcp.ProviderSet,
)
