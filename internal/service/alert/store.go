package alert

import (
	"context"
	"sync"
	"time"

	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
)

// Store is the narrow persistence contract the engine depends on. The concern
// key is reserved for finer dedup identities; an empty key means "any concern
// in the session".
type Store interface {
	CreateAlert(ctx context.Context, event *safetymodel.AlertEvent) error
	ResolveAlert(ctx context.Context, alertID string) error
	UnresolvedAlert(ctx context.Context, sessionID, concernKey string, since time.Time) (*safetymodel.AlertEvent, bool, error)
	ListAlerts(ctx context.Context, sessionID string) ([]safetymodel.AlertEvent, error)
	UnresolvedAlerts(ctx context.Context, sessionID string) ([]safetymodel.AlertEvent, error)
	AppendOccurrence(ctx context.Context, occ safetymodel.Occurrence) error
	Occurrences(ctx context.Context, alertID string) ([]safetymodel.Occurrence, error)
}

// MemoryStore keeps alerts in process memory, guarded the same way the chat
// service guards its maps.
type MemoryStore struct {
	mu          sync.RWMutex
	alerts      map[string]*safetymodel.AlertEvent
	bySession   map[string][]string
	occurrences map[string][]safetymodel.Occurrence
}

// NewMemoryStore creates an empty alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:      make(map[string]*safetymodel.AlertEvent),
		bySession:   make(map[string][]string),
		occurrences: make(map[string][]safetymodel.Occurrence),
	}
}

// CreateAlert persists a new event.
func (s *MemoryStore) CreateAlert(_ context.Context, event *safetymodel.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *event
	s.alerts[event.ID] = &stored
	s.bySession[event.SessionID] = append(s.bySession[event.SessionID], event.ID)
	return nil
}

// ResolveAlert flips Resolved to true. Resolving an already-resolved or
// unknown alert is a no-op; the caller cannot tell the difference and must
// not need to.
func (s *MemoryStore) ResolveAlert(_ context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event, ok := s.alerts[alertID]; ok {
		event.Resolved = true
	}
	return nil
}

// UnresolvedAlert returns the most recent unresolved concern alert for the
// session created at or after since. INFO-level alerts never participate: they
// are informational records (activity alerts), not live concerns, and must not
// absorb or be superseded by real signals.
func (s *MemoryStore) UnresolvedAlert(_ context.Context, sessionID, _ string, since time.Time) (*safetymodel.AlertEvent, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	for i := len(ids) - 1; i >= 0; i-- {
		event := s.alerts[ids[i]]
		if event == nil || event.Resolved || event.CreatedAt.Before(since) {
			continue
		}
		if event.Severity == safetymodel.SeverityInfo {
			continue
		}
		copied := *event
		return &copied, true, nil
	}
	return nil, false, nil
}

// ListAlerts returns all alerts for a session, newest first.
func (s *MemoryStore) ListAlerts(_ context.Context, sessionID string) ([]safetymodel.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	out := make([]safetymodel.AlertEvent, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if event := s.alerts[ids[i]]; event != nil {
			out = append(out, *event)
		}
	}
	return out, nil
}

// UnresolvedAlerts returns unresolved alerts for a session, newest first.
func (s *MemoryStore) UnresolvedAlerts(_ context.Context, sessionID string) ([]safetymodel.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	out := make([]safetymodel.AlertEvent, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if event := s.alerts[ids[i]]; event != nil && !event.Resolved {
			out = append(out, *event)
		}
	}
	return out, nil
}

// AppendOccurrence records an absorbed signal against its alert.
func (s *MemoryStore) AppendOccurrence(_ context.Context, occ safetymodel.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.occurrences[occ.AlertID] = append(s.occurrences[occ.AlertID], occ)
	return nil
}

// Occurrences returns the absorption audit trail for an alert.
func (s *MemoryStore) Occurrences(_ context.Context, alertID string) ([]safetymodel.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]safetymodel.Occurrence, len(s.occurrences[alertID]))
	copy(copied, s.occurrences[alertID])
	return copied, nil
}
