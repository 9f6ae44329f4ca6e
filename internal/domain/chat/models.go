package chat

import "time"

// Role 对话角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation 回答引用的来源
type Citation struct {
	FileName string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float32 `json:"score"`
	Preview  string  `json:"preview,omitempty"`
}

// Turn 一条对话记录，写入后不可变
type Turn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Citations []Citation `json:"citations,omitempty"`
}

// Session 会话及其有序对话记录
type Session struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []Turn    `json:"turns"`
}

// SessionSummary 会话列表摘要
type SessionSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	TurnCount      int       `json:"turn_count"`
	UserTurns      int       `json:"user_turns"`
	AssistantTurns int       `json:"assistant_turns"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Summary 根据完整会话计算摘要
func (s *Session) Summary() SessionSummary {
	sum := SessionSummary{
		ID:        s.ID,
		Name:      s.Name,
		TurnCount: len(s.Turns),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for _, t := range s.Turns {
		switch t.Role {
		case RoleUser:
			sum.UserTurns++
		case RoleAssistant:
			sum.AssistantTurns++
		}
	}
	return sum
}
