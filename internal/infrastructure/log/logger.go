package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfchat/pdfchat/internal/infrastructure/log/handler"
)

// 全局 logger 实例
var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
	debugMode     bool
	logFile       *os.File
)

// Init 初始化日志系统
func Init(cfg *Config) {
	if cfg == nil {
		cfg = NewConfigFromEnv()
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		// 文件不可写时退回 stderr，日志不能影响主流程
		fmt.Fprintf(os.Stderr, "pdfchat: %v, logging to stderr\n", err)
		out = os.Stderr
	}

	var logHandler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		logHandler = slog.NewJSONHandler(out, opts)
	case "text":
		logHandler = slog.NewTextHandler(out, opts)
	default:
		logHandler = handler.NewConsoleHandler(out, opts)
	}

	mu.Lock()
	defaultLogger = slog.New(logHandler.WithAttrs([]slog.Attr{
		slog.String("service", "pdfchat"),
	}))
	debugMode = strings.ToLower(cfg.Level) == "debug"
	mu.Unlock()

	slog.SetDefault(defaultLogger)
}

// openOutput 解析输出目标：stdout、stderr 或 file:/path
func openOutput(output string) (io.Writer, error) {
	switch {
	case output == "" || output == "stderr":
		return os.Stderr, nil
	case output == "stdout":
		return os.Stdout, nil
	case strings.HasPrefix(output, "file:"):
		path := strings.TrimPrefix(output, "file:")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		mu.Lock()
		if logFile != nil {
			_ = logFile.Close()
		}
		logFile = f
		mu.Unlock()
		return f, nil
	default:
		return nil, fmt.Errorf("unknown log output %q", output)
	}
}

// GetLogger 获取默认 logger
func GetLogger() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Init(nil)
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

// With 创建带有额外字段的 logger
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// NewModuleLogger 为特定模块创建 logger
func NewModuleLogger(module, component string) *slog.Logger {
	return GetLogger().With(
		slog.String("module", module),
		slog.String("component", component),
	)
}

// IsDebugMode 检查是否为调试模式
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// Close 关闭日志文件（如果有）
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// parseLevel 解析日志级别
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
