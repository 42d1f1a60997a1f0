package history

import "time"

// Roles stored with each message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single conversational message persisted per session.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Memory is what the assistant remembers of a session between turns.
type Memory struct {
	LastContext  string `json:"last_context"`
	LastQuestion string `json:"last_question"`
}
