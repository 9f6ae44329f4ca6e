package chat

import "errors"

// 会话相关错误
var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists 会话 ID 已存在
	ErrSessionExists = errors.New("session already exists")

	// ErrEmptyQuestion 问题为空
	ErrEmptyQuestion = errors.New("question is empty")
)
