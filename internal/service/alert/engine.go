// Package alert implements the decision state machine that turns detection
// signals into persisted alert events.
package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	scanner "github.com/zhouzirui/kidwatch/backend/internal/analysis/safety"
	"github.com/zhouzirui/kidwatch/backend/internal/model/chat"
	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
	"github.com/zhouzirui/kidwatch/backend/internal/service/classifier"
)

// Config controls the dedup window and activity alerting.
type Config struct {
	DedupWindow   time.Duration
	ActivityLimit time.Duration
}

// Engine merges scanner and classifier outputs into one decision per message.
// Severity for a live concern only moves upward: an absorbed repeat leaves an
// occurrence record, an escalation supersedes the prior event with a higher
// one, and nothing ever downgrades a raised alert.
type Engine struct {
	store Store
	cfg   Config
	ops   chan error
}

// NewEngine creates the engine around its storage collaborator.
func NewEngine(store Store, cfg Config) *Engine {
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = 5 * time.Minute
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = 2 * time.Hour
	}
	return &Engine{
		store: store,
		cfg:   cfg,
		ops:   make(chan error, 16),
	}
}

// OperationalErrors exposes persistence failures that were survived in-band.
// Consumers drain it out of band; the engine never blocks on it.
func (e *Engine) OperationalErrors() <-chan error {
	return e.ops
}

// Decide applies the decision rules to one message's signals. It returns the
// created event, or nil when the signal was informational or absorbed by the
// dedup window. A persistence failure does not null the returned event: the
// caller still forwards it for live delivery.
func (e *Engine) Decide(ctx context.Context, message chat.Message, scan scanner.Result, suggestion classifier.Suggestion) *safetymodel.AlertEvent {
	final := safetymodel.MaxSeverity(scan.Severity, suggestion.Severity)
	if final == safetymodel.SeverityInfo {
		return nil
	}

	now := time.Now().UTC()
	prior, found, err := e.store.UnresolvedAlert(ctx, message.SessionID, "", now.Add(-e.cfg.DedupWindow))
	if err != nil {
		// Dedup lookup failing must not suppress a real signal; treat it as
		// "no prior alert" and raise.
		log.Printf("[alert] dedup lookup failed session=%s: %v", message.SessionID, err)
		found = false
	}

	if found && prior.Severity.AtLeast(final) {
		occ := safetymodel.Occurrence{
			AlertID:   prior.ID,
			SessionID: message.SessionID,
			Severity:  final,
			Excerpt:   excerpt(message.Content),
			CreatedAt: now,
		}
		if err := e.store.AppendOccurrence(ctx, occ); err != nil {
			e.raiseOps(fmt.Errorf("append occurrence for alert %s: %w", prior.ID, err))
		}
		log.Printf("[alert] absorbed %s signal into alert=%s session=%s", final, prior.ID, message.SessionID)
		return nil
	}

	if found {
		// Escalation path: the prior, lower event is closed as superseded and
		// a fresh higher one is raised, so severity never silently drops.
		if err := e.store.ResolveAlert(ctx, prior.ID); err != nil {
			e.raiseOps(fmt.Errorf("supersede alert %s: %w", prior.ID, err))
		}
	}

	event := &safetymodel.AlertEvent{
		ID:             uuid.NewString(),
		SessionID:      message.SessionID,
		Severity:       final,
		Source:         decideSource(scan, suggestion),
		Message:        fmt.Sprintf("Child said: %q", message.Content),
		Context:        excerpt(message.Content),
		Assessment:     suggestion.Rationale,
		RequiresAction: final.AtLeast(safetymodel.SeverityUrgent),
		CreatedAt:      now,
	}
	e.persist(ctx, event)
	return event
}

// ManualTrigger creates a fresh EMERGENCY event, dedup window notwithstanding.
// Guardian safety is never suppressed by a matching-window heuristic.
func (e *Engine) ManualTrigger(ctx context.Context, sessionID, reason string) *safetymodel.AlertEvent {
	if reason == "" {
		reason = "Child triggered panic button"
	}
	event := &safetymodel.AlertEvent{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Severity:       safetymodel.SeverityEmergency,
		Source:         safetymodel.SourceManual,
		Message:        "EMERGENCY: panic button pressed",
		Context:        reason,
		Assessment:     "Immediate guardian notification required",
		RequiresAction: true,
		CreatedAt:      time.Now().UTC(),
	}
	e.persist(ctx, event)
	return event
}

// ActivityCheck raises an informational, non-dispatched alert once a session
// has been running past the configured limit. Returns nil below the limit.
func (e *Engine) ActivityCheck(ctx context.Context, sessionID, activityType string, duration time.Duration) *safetymodel.AlertEvent {
	if duration < e.cfg.ActivityLimit {
		return nil
	}
	event := &safetymodel.AlertEvent{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Severity:   safetymodel.SeverityInfo,
		Source:     safetymodel.SourceManual,
		Message:    fmt.Sprintf("Child has been engaged in %s for %d minutes", activityType, int(duration.Minutes())),
		Context:    "Extended session duration",
		Assessment: "Consider suggesting a break or checking in",
		CreatedAt:  time.Now().UTC(),
	}
	e.persist(ctx, event)
	return event
}

// Resolve marks an alert resolved. Idempotent by way of the store contract.
func (e *Engine) Resolve(ctx context.Context, alertID string) error {
	return e.store.ResolveAlert(ctx, alertID)
}

// persist writes the event with one synchronous retry. On repeated failure the
// event still flows to live delivery; the failure goes to the operational
// channel for out-of-band follow-up.
func (e *Engine) persist(ctx context.Context, event *safetymodel.AlertEvent) {
	err := e.store.CreateAlert(ctx, event)
	if err == nil {
		return
	}
	if retryErr := e.store.CreateAlert(ctx, event); retryErr == nil {
		return
	}
	log.Printf("[alert] persistence failed twice for alert=%s session=%s: %v", event.ID, event.SessionID, err)
	e.raiseOps(fmt.Errorf("persist alert %s: %w", event.ID, err))
}

func (e *Engine) raiseOps(err error) {
	select {
	case e.ops <- err:
	default:
		log.Printf("[alert] operational channel full, dropping: %v", err)
	}
}

func decideSource(scan scanner.Result, suggestion classifier.Suggestion) safetymodel.Source {
	if suggestion.Severity > scan.Severity {
		return safetymodel.SourceContextual
	}
	if scan.Emotional {
		return safetymodel.SourceEmotion
	}
	return safetymodel.SourceKeyword
}

// excerpt bounds the stored context so a long paste does not balloon alerts.
func excerpt(content string) string {
	const limit = 280
	if len(content) <= limit {
		return content
	}
	return content[:limit] + "..."
}
