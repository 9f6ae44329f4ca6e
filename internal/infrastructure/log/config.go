package log

import (
	"os"
	"strconv"
	"strings"
)

// Config 日志配置
type Config struct {
	// Level 日志级别：debug, info, warn, error
	Level string `yaml:"level" json:"level"`

	// Format 日志格式：console, text, json
	Format string `yaml:"format" json:"format"`

	// Output 输出目标：stderr, stdout, file:/path/to/log
	Output string `yaml:"output" json:"output"`

	// AddSource 是否添加源文件信息
	AddSource bool `yaml:"add_source" json:"add_source"`
}

// NewConfigFromEnv 从环境变量创建配置
// 交互式 CLI 默认只输出 warn 及以上，避免日志与终端输出混杂
func NewConfigFromEnv() *Config {
	cfg := &Config{
		Level:     getEnvWithDefault("LOG_LEVEL", "warn"),
		Format:    getEnvWithDefault("LOG_FORMAT", "console"),
		Output:    getEnvWithDefault("LOG_OUTPUT", "stderr"),
		AddSource: getEnvBool("LOG_ADD_SOURCE", false),
	}

	if cfg.isDevelopment() {
		cfg.Level = "debug"
		cfg.Format = "console"
		cfg.AddSource = true
	}

	return cfg
}

// Merge 用非空字段覆盖当前配置，环境变量优先于配置文件
func (c *Config) Merge(file Config) {
	if file.Level != "" && os.Getenv("LOG_LEVEL") == "" {
		c.Level = file.Level
	}
	if file.Format != "" && os.Getenv("LOG_FORMAT") == "" {
		c.Format = file.Format
	}
	if file.Output != "" && os.Getenv("LOG_OUTPUT") == "" {
		c.Output = file.Output
	}
	if file.AddSource {
		c.AddSource = true
	}
}

// isDevelopment 检查是否为开发环境
func (c *Config) isDevelopment() bool {
	env := getEnvWithDefault("ENV", "production")
	return strings.ToLower(env) == "development"
}

// getEnvWithDefault 获取环境变量，带默认值
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
