package chat

import "time"

// Session captures one conversation between a child and the assistant. The
// guardian id is what routes live alerts raised during the session.
type Session struct {
	ID         string    `json:"id"`
	ChildID    string    `json:"childId"`
	GuardianID string    `json:"guardianId"`
	ChildAge   int       `json:"childAge,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
