package llm

import (
	"github.com/google/wire"

	domainRAG "github.com/pdfchat/pdfchat/internal/domain/rag"
)

// ProviderSet LLM ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
	wire.Bind(new(domainRAG.ChatModel), new(*Client)),
)
