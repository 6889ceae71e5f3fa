package interview

import "time"

// Role identifies who authored a message in the thread.
type Role string

const (
	RoleSystem    Role = "system"
	RoleCandidate Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation thread sent to the generator.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
