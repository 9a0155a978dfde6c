package safety

import "time"

// Source identifies which detection layer raised an alert.
type Source string

const (
	SourceKeyword    Source = "keyword"
	SourceContextual Source = "contextual"
	SourceEmotion    Source = "emotion"
	SourceManual     Source = "manual"
)

// AlertEvent is the persisted record of one safety decision. After creation the
// only permitted mutation is Resolved false -> true.
type AlertEvent struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"sessionId"`
	Severity       Severity  `json:"level"`
	Source         Source    `json:"source"`
	Message        string    `json:"message"`
	Context        string    `json:"context,omitempty"`
	Assessment     string    `json:"assessment,omitempty"`
	RequiresAction bool      `json:"requiresAction"`
	Resolved       bool      `json:"resolved"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Occurrence is the audit record for a signal absorbed by the dedup window
// instead of producing a fresh AlertEvent.
type Occurrence struct {
	AlertID   string    `json:"alertId"`
	SessionID string    `json:"sessionId"`
	Severity  Severity  `json:"level"`
	Excerpt   string    `json:"excerpt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// WirePayload is the stable shape delivered to guardian subscribers. Consumers
// must tolerate additional fields, so extras beyond the documented set are fine.
type WirePayload struct {
	Type           string `json:"type"`
	Level          string `json:"level"`
	Message        string `json:"message"`
	Context        string `json:"context,omitempty"`
	RequiresAction bool   `json:"requiresAction"`
	Timestamp      string `json:"timestamp"`
	SessionID      string `json:"sessionId,omitempty"`
	AlertID        string `json:"alertId,omitempty"`
	Source         string `json:"source,omitempty"`
	Assessment     string `json:"assessment,omitempty"`
	Seq            uint64 `json:"seq,omitempty"`
}

// WireFor builds the delivery payload for an alert event.
func WireFor(event *AlertEvent, seq uint64) WirePayload {
	return WirePayload{
		Type:           "alert",
		Level:          event.Severity.String(),
		Message:        event.Message,
		Context:        event.Context,
		RequiresAction: event.RequiresAction,
		Timestamp:      event.CreatedAt.UTC().Format(time.RFC3339),
		SessionID:      event.SessionID,
		AlertID:        event.ID,
		Source:         string(event.Source),
		Assessment:     event.Assessment,
		Seq:            seq,
	}
}
