package embedding

import (
	"github.com/google/wire"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
)

// ProviderSet Embedding ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
	wire.Bind(new(domainRAG.Embedder), new(*Client)),
)
