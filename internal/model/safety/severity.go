package safety

import "strings"

// Severity is the ordered urgency of a safety signal. Higher values always win
// when signals are merged; comparisons must go through the numeric order, never
// through the wire strings.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityUrgent
	SeverityEmergency
)

var severityNames = map[Severity]string{
	SeverityInfo:      "info",
	SeverityWarning:   "warning",
	SeverityUrgent:    "urgent",
	SeverityEmergency: "emergency",
}

// String returns the wire name used in alert payloads.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "info"
}

// AtLeast reports whether s is at or above other in the urgency order.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// MaxSeverity merges two signals, keeping the more urgent one.
func MaxSeverity(a, b Severity) Severity {
	if a > b {
		return a
	}
	return b
}

// MarshalJSON emits the wire name so stored and delivered alerts share one
// vocabulary.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON accepts the wire names and the classifier's concern labels.
func (s *Severity) UnmarshalJSON(data []byte) error {
	parsed, _ := ParseSeverity(strings.Trim(string(data), `"`))
	*s = parsed
	return nil
}

// ParseSeverity maps a wire or classifier label back to a Severity. Unknown
// labels degrade to info so a malformed classifier answer can never escalate.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info", "none", "low":
		return SeverityInfo, true
	case "warning", "medium":
		return SeverityWarning, true
	case "urgent", "high":
		return SeverityUrgent, true
	case "emergency", "critical":
		return SeverityEmergency, true
	default:
		return SeverityInfo, false
	}
}
