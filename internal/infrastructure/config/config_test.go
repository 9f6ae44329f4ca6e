package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		EnvDataDir, "PDFCHAT_OLLAMA_URL", "PDFCHAT_CHAT_MODEL", "PDFCHAT_EMBEDDING_MODEL",
		"PDFCHAT_CHUNK_SIZE", "PDFCHAT_CHUNK_OVERLAP", "PDFCHAT_MAX_CONTEXT_CHUNKS",
		"PDFCHAT_QDRANT_HOST", "PDFCHAT_QDRANT_PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT", "ENV",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := NewConfig()

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "mixtral", cfg.Ollama.ChatModel)
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbeddingModel)
	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 128, cfg.Chunking.Overlap)
	assert.Equal(t, ChunkUnitTokens, cfg.Chunking.Unit)
	assert.Equal(t, 5, cfg.Chat.MaxContextChunks)
	assert.Equal(t, DefaultSystemPrompt, cfg.Chat.SystemPrompt)
	assert.Equal(t, QdrantModeExternal, cfg.Qdrant.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	ResetDataDir()
	defer ResetDataDir()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.HistoryDBPath())
	assert.Equal(t, filepath.Join(dir, "qdrant"), cfg.QdrantStoragePath())
	assert.Equal(t, filepath.Join(dir, "uploads"), cfg.UploadDir())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
data_dir: ` + dir + `
ollama:
  chat_model: llama3
chunking:
  size: 400
  overlap: 40
  unit: characters
chat:
  max_context_chunks: 3
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("PDFCHAT_CHUNK_OVERLAP", "50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llama3", cfg.Ollama.ChatModel)
	// 文件未设置的字段保持默认
	assert.Equal(t, "nomic-embed-text", cfg.Ollama.EmbeddingModel)
	assert.Equal(t, 400, cfg.Chunking.Size)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, ChunkUnitCharacters, cfg.Chunking.Unit)
	assert.Equal(t, 3, cfg.Chat.MaxContextChunks)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [1, 2"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"分块大小为零", func(c *Config) { c.Chunking.Size = 0 }},
		{"重叠等于分块大小", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }},
		{"重叠为负数", func(c *Config) { c.Chunking.Overlap = -1 }},
		{"未知分块单位", func(c *Config) { c.Chunking.Unit = "words" }},
		{"上下文块数为零", func(c *Config) { c.Chat.MaxContextChunks = 0 }},
		{"未知 qdrant 模式", func(c *Config) { c.Qdrant.Mode = "cloud" }},
		{"缺少 ollama 地址", func(c *Config) { c.Ollama.BaseURL = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := NewConfig()
	cfg.DataDir = filepath.Dir(path)
	cfg.Ollama.ChatModel = "qwen2"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen2", loaded.Ollama.ChatModel)
}
