package safety

import (
	"encoding/json"
	"testing"
)

func TestSeverityOrder(t *testing.T) {
	if !(SeverityInfo < SeverityWarning && SeverityWarning < SeverityUrgent && SeverityUrgent < SeverityEmergency) {
		t.Fatal("severity order broken")
	}
	if MaxSeverity(SeverityWarning, SeverityUrgent) != SeverityUrgent {
		t.Fatal("MaxSeverity should keep the more urgent signal")
	}
	if !SeverityEmergency.AtLeast(SeverityUrgent) {
		t.Fatal("emergency is at least urgent")
	}
	if SeverityInfo.AtLeast(SeverityWarning) {
		t.Fatal("info is not at least warning")
	}
}

func TestParseSeverityLabels(t *testing.T) {
	cases := map[string]Severity{
		"none":      SeverityInfo,
		"low":       SeverityInfo,
		"medium":    SeverityWarning,
		"HIGH":      SeverityUrgent,
		"critical":  SeverityEmergency,
		"emergency": SeverityEmergency,
	}
	for raw, want := range cases {
		got, ok := ParseSeverity(raw)
		if !ok || got != want {
			t.Fatalf("ParseSeverity(%q) = %s, %v; want %s", raw, got, ok, want)
		}
	}

	got, ok := ParseSeverity("apocalyptic")
	if ok || got != SeverityInfo {
		t.Fatalf("unknown labels must degrade to info, got %s, %v", got, ok)
	}
}

func TestSeverityJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(SeverityUrgent)
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	if string(data) != `"urgent"` {
		t.Fatalf("unexpected wire form %s", data)
	}

	var parsed Severity
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if parsed != SeverityUrgent {
		t.Fatalf("round trip lost severity: %s", parsed)
	}
}
