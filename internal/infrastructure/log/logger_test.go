package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfchat/pdfchat/internal/infrastructure/log/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("默认配置", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")
		t.Setenv("LOG_OUTPUT", "")
		t.Setenv("ENV", "")

		cfg := NewConfigFromEnv()
		assert.Equal(t, "warn", cfg.Level)
		assert.Equal(t, "console", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
	})

	t.Run("环境变量覆盖", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "json")
		t.Setenv("ENV", "")

		cfg := NewConfigFromEnv()
		assert.Equal(t, "debug", cfg.Level)
		assert.Equal(t, "json", cfg.Format)
	})

	t.Run("开发环境", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "error")

		cfg := NewConfigFromEnv()
		assert.Equal(t, "debug", cfg.Level)
		assert.True(t, cfg.AddSource)
	})
}

func TestConfigMerge(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "json")

	cfg := &Config{Level: "warn", Format: "json", Output: "stderr"}
	cfg.Merge(Config{Level: "info", Format: "text"})

	assert.Equal(t, "info", cfg.Level)
	// LOG_FORMAT 已设置，文件配置不生效
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		expected     bool
	}{
		{"true value", false, "true", true},
		{"false value", true, "false", false},
		{"invalid value", true, "invalid", true},
		{"missing env", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			assert.Equal(t, tt.expected, getEnvBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pdfchat.log")
	Init(&Config{Level: "info", Format: "json", Output: "file:" + path})
	defer func() {
		Close()
		Init(&Config{Level: "warn", Format: "console", Output: "stderr"})
	}()

	NewModuleLogger("test", "component").Info("written to file", "n", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"module":"test"`)
	assert.False(t, IsDebugMode())
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(handler.NewConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})).
		With("module", "chat", "component", "engine")

	logger.Debug("hidden")
	logger.Info("answer generated", "citations", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[chat/engine]")
	assert.Contains(t, out, "answer generated")
	assert.Contains(t, out, "citations=2")
}

func TestLogCtxFromContext(t *testing.T) {
	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "20240101_120000")

	attrs := LogCtxFromContext(ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, slog.String("request_id", "req-1"), attrs[0])
	assert.Equal(t, slog.String("session_id", "20240101_120000"), attrs[1])

	assert.Empty(t, LogCtxFromContext(context.Background()))
}
