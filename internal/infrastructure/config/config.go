package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pdfchat/pdfchat/internal/infrastructure/log"
)

// DefaultSystemPrompt 默认系统提示词
const DefaultSystemPrompt = "You are a helpful assistant that answers questions based on the provided PDF documents. " +
	"Always cite your sources by mentioning the document name and page number when possible. " +
	"If you cannot find relevant information in the provided context, say so clearly. " +
	"Be concise but thorough in your responses."

// 分块单位
const (
	ChunkUnitTokens     = "tokens"
	ChunkUnitCharacters = "characters"
)

// Qdrant 运行模式
const (
	QdrantModeExternal = "external"
	QdrantModeLocal    = "local"
)

// Config 应用配置
type Config struct {
	// DataDir 数据根目录，留空使用 GetDataDir()
	DataDir   string          `yaml:"data_dir"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
	Log       log.Config      `yaml:"log"`
}

// OllamaConfig 模型服务配置
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	// TimeoutSecs 单次请求超时，0 表示不限制
	TimeoutSecs int `yaml:"timeout_secs"`
}

// ChunkingConfig 分块配置
type ChunkingConfig struct {
	Size    int    `yaml:"size"`
	Overlap int    `yaml:"overlap"`
	Unit    string `yaml:"unit"`
}

// EmbeddingConfig 向量化配置
type EmbeddingConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// ChatConfig 问答配置
type ChatConfig struct {
	MaxContextChunks int     `yaml:"max_context_chunks"`
	HistoryTurns     int     `yaml:"history_turns"`
	// MinScore 低于该余弦相似度的片段不进入上下文
	MinScore         float64 `yaml:"min_score"`
	Temperature      float64 `yaml:"temperature"`
	SystemPrompt     string  `yaml:"system_prompt"`
}

// QdrantConfig 向量数据库配置
type QdrantConfig struct {
	// Mode external 连接已有服务；local 启动本地二进制
	Mode       string `yaml:"mode"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	BinaryPath string `yaml:"binary_path"`
}

// ServerConfig serve 模式配置
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig 目录监听配置
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// NewConfig 创建配置（默认值）
func NewConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			ChatModel:      "mixtral",
			EmbeddingModel: "nomic-embed-text",
		},
		Chunking: ChunkingConfig{
			Size:    1000,
			Overlap: 128,
			Unit:    ChunkUnitTokens,
		},
		Embedding: EmbeddingConfig{
			BatchSize: 16,
		},
		Chat: ChatConfig{
			MaxContextChunks: 5,
			HistoryTurns:     6,
			MinScore:         0.3,
			Temperature:      0.2,
			SystemPrompt:     DefaultSystemPrompt,
		},
		Qdrant: QdrantConfig{
			Mode:       QdrantModeExternal,
			Host:       "localhost",
			Port:       6334,
			Collection: "pdf_documents",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Watch: WatchConfig{
			DebounceMillis: 2000,
		},
		Log: *log.NewConfigFromEnv(),
	}
}

// Load 读取配置文件，叠加环境变量并校验
// path 为空时读取数据目录下的 config.yaml；文件不存在时使用默认值
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		path = filepath.Join(GetDataDir(), ConfigFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg := NewConfig()
		if err := yaml.Unmarshal(data, fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		envLog := cfg.Log
		cfg = fileCfg
		envLog.Merge(fileCfg.Log)
		cfg.Log = envLog
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save 写入配置文件
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// YAML 序列化当前配置
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive", ErrInvalidConfig)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, size)", ErrInvalidConfig)
	}
	if c.Chunking.Unit != ChunkUnitTokens && c.Chunking.Unit != ChunkUnitCharacters {
		return fmt.Errorf("%w: chunking.unit must be %q or %q", ErrInvalidConfig, ChunkUnitTokens, ChunkUnitCharacters)
	}
	if c.Chat.MaxContextChunks <= 0 {
		return fmt.Errorf("%w: chat.max_context_chunks must be positive", ErrInvalidConfig)
	}
	if c.Chat.HistoryTurns < 0 {
		return fmt.Errorf("%w: chat.history_turns must not be negative", ErrInvalidConfig)
	}
	if c.Chat.MinScore < -1 || c.Chat.MinScore > 1 {
		return fmt.Errorf("%w: chat.min_score must be in [-1, 1]", ErrInvalidConfig)
	}
	if c.Qdrant.Mode != QdrantModeExternal && c.Qdrant.Mode != QdrantModeLocal {
		return fmt.Errorf("%w: qdrant.mode must be %q or %q", ErrInvalidConfig, QdrantModeExternal, QdrantModeLocal)
	}
	if strings.TrimSpace(c.Ollama.BaseURL) == "" {
		return fmt.Errorf("%w: ollama.base_url is required", ErrInvalidConfig)
	}
	return nil
}

// applyEnv 环境变量覆盖
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(EnvDataDir, &cfg.DataDir)
	setString("PDFCHAT_OLLAMA_URL", &cfg.Ollama.BaseURL)
	setString("PDFCHAT_CHAT_MODEL", &cfg.Ollama.ChatModel)
	setString("PDFCHAT_EMBEDDING_MODEL", &cfg.Ollama.EmbeddingModel)
	setInt("PDFCHAT_CHUNK_SIZE", &cfg.Chunking.Size)
	setInt("PDFCHAT_CHUNK_OVERLAP", &cfg.Chunking.Overlap)
	setInt("PDFCHAT_MAX_CONTEXT_CHUNKS", &cfg.Chat.MaxContextChunks)
	setString("PDFCHAT_QDRANT_HOST", &cfg.Qdrant.Host)
	setInt("PDFCHAT_QDRANT_PORT", &cfg.Qdrant.Port)
}

// applyDefaults 补齐文件中缺失的字段
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		cfg.DataDir = GetDataDir()
	}
	if cfg.Chunking.Unit == "" {
		cfg.Chunking.Unit = ChunkUnitTokens
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 16
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.Qdrant.Mode == "" {
		cfg.Qdrant.Mode = QdrantModeExternal
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "pdf_documents"
	}
	if cfg.Watch.DebounceMillis <= 0 {
		cfg.Watch.DebounceMillis = 2000
	}
}

// HistoryDBPath 会话与索引登记数据库路径
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, HistoryDBFileName)
}

// QdrantStoragePath 本地 Qdrant 存储目录
func (c *Config) QdrantStoragePath() string {
	return filepath.Join(c.DataDir, "qdrant")
}

// UploadDir serve 模式接收上传文件的目录
func (c *Config) UploadDir() string {
	return filepath.Join(c.DataDir, "uploads")
}
