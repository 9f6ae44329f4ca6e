package log

import (
	"context"
	"log/slog"
)

type ctxKey string

// 上下文键定义
const (
	// RequestContextID HTTP 请求 ID
	RequestContextID ctxKey = "request_id"

	// SessionContextID 会话 ID
	SessionContextID ctxKey = "session_id"
)

// WithRequestID 在上下文中添加请求 ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestContextID, requestID)
}

// WithSessionID 在上下文中添加会话 ID
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionContextID, sessionID)
}

// LogCtxFromContext 从上下文中提取日志字段
func LogCtxFromContext(ctx context.Context) []any {
	var attrs []any

	if requestID, ok := ctx.Value(RequestContextID).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if sessionID, ok := ctx.Value(SessionContextID).(string); ok && sessionID != "" {
		attrs = append(attrs, slog.String("session_id", sessionID))
	}

	return attrs
}
