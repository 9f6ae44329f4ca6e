package config

import "github.com/google/wire"

// ProviderSet 配置 ProviderSet
var ProviderSet = wire.NewSet(
	NewOllamaConfig,
	NewChunkingConfig,
	NewEmbeddingConfig,
	NewChatConfig,
	NewQdrantConfig,
	NewServerConfig,
	NewWatchConfig,
)

// NewOllamaConfig 提取模型服务配置
func NewOllamaConfig(cfg *Config) *OllamaConfig { return &cfg.Ollama }

// NewChunkingConfig 提取分块配置
func NewChunkingConfig(cfg *Config) *ChunkingConfig { return &cfg.Chunking }

// NewEmbeddingConfig 提取向量化配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig { return &cfg.Embedding }

// NewChatConfig 提取问答配置
func NewChatConfig(cfg *Config) *ChatConfig { return &cfg.Chat }

// NewQdrantConfig 提取向量数据库配置
func NewQdrantConfig(cfg *Config) *QdrantConfig { return &cfg.Qdrant }

// NewServerConfig 提取 serve 模式配置
func NewServerConfig(cfg *Config) *ServerConfig { return &cfg.Server }

// NewWatchConfig 提取目录监听配置
func NewWatchConfig(cfg *Config) *WatchConfig { return &cfg.Watch }
