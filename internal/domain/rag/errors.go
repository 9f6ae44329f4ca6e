package rag

import (
	"errors"
	"fmt"
)

// 检索增强流程相关错误
var (
	// ErrEmbedding 向量化服务不可达或返回错误
	ErrEmbedding = errors.New("embedding service error")

	// ErrChatModel 对话模型不可达或响应格式错误
	ErrChatModel = errors.New("chat model error")

	// ErrEmptyAnswer 对话模型返回空回答，属于 ErrChatModel
	ErrEmptyAnswer = fmt.Errorf("%w: empty answer", ErrChatModel)

	// ErrStore 向量数据库连接或数据错误
	ErrStore = errors.New("vector store error")
)
