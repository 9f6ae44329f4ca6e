package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDataDir(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		env  string
		want string
	}{
		{name: "默认位于用户目录", env: "", want: filepath.Join(homeDir, ".pdf-chat-ollama")},
		{name: "环境变量覆盖", env: "/srv/pdfchat", want: "/srv/pdfchat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetDataDir()
			t.Cleanup(ResetDataDir)
			t.Setenv(EnvDataDir, tt.env)

			assert.Equal(t, tt.want, GetDataDir())
		})
	}
}

func TestGetDataDir_CachedUntilReset(t *testing.T) {
	ResetDataDir()
	t.Cleanup(ResetDataDir)

	t.Setenv(EnvDataDir, "/data/a")
	assert.Equal(t, "/data/a", GetDataDir())

	// 缓存期间环境变量变化不生效
	t.Setenv(EnvDataDir, "/data/b")
	assert.Equal(t, "/data/a", GetDataDir())

	ResetDataDir()
	assert.Equal(t, "/data/b", GetDataDir())
}

func TestLoad_UsesConfigFromDataDir(t *testing.T) {
	dir := t.TempDir()
	ResetDataDir()
	t.Cleanup(ResetDataDir)
	t.Setenv(EnvDataDir, dir)

	content := "ollama:\n  chat_model: llama3\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Ollama.ChatModel)
	assert.Equal(t, filepath.Join(dir, HistoryDBFileName), cfg.HistoryDBPath())
}
