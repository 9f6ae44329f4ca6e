package config

import "errors"

// ErrInvalidConfig 配置值非法
var ErrInvalidConfig = errors.New("invalid config")
