package chat

import "time"

// Sender values for Message. The child is the monitored party; everything the
// assistant says is stored too for audit.
const (
	SenderChild     = "child"
	SenderAssistant = "assistant"
)

// Message persists individual turns for audit and classifier context. Values
// are immutable once stored.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
