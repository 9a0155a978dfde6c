// Package classifier assesses intent, risk and emotion for a child message by
// delegating to the text-generation capability behind the provider chain.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/kidwatch/backend/internal/model/chat"
	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
	"github.com/zhouzirui/kidwatch/backend/internal/provider"
	"github.com/zhouzirui/kidwatch/backend/internal/service/retrieval"
)

// Config controls context depth, enrichment and time budgets.
type Config struct {
	HistoryLimit    int
	RetrievalK      int
	Timeout         time.Duration
	DegradedTimeout time.Duration
}

// Suggestion is the classifier's contribution to the alert decision. A failed
// or unparsable classification degrades to a neutral suggestion with
// ParseFailed set; Classify never returns an error.
type Suggestion struct {
	Severity    safetymodel.Severity
	Rationale   string
	Emotion     string
	ParseFailed bool
	ProviderID  string
}

// Service runs contextual classification through a text-generation chain.
type Service struct {
	chain     *provider.Chain[provider.GenInput, provider.GenOutput]
	retriever retrieval.Retriever
	cfg       Config
}

// NewService creates the classifier. retriever may be nil; enrichment is then
// skipped entirely.
func NewService(chain *provider.Chain[provider.GenInput, provider.GenOutput], retriever retrieval.Retriever, cfg Config) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.DegradedTimeout <= 0 || cfg.DegradedTimeout > cfg.Timeout {
		cfg.DegradedTimeout = cfg.Timeout / 4
	}
	return &Service{chain: chain, retriever: retriever, cfg: cfg}
}

// Classify assesses one message against its recent context. The last N history
// messages are appended in order, most recent last. When the chain is degraded
// the call runs under a shortened budget so the turn is not held hostage by a
// capability that has been failing.
func (s *Service) Classify(ctx context.Context, message chat.Message, history []chat.Message) Suggestion {
	if s == nil || s.chain == nil {
		return Suggestion{Severity: safetymodel.SeverityInfo, ParseFailed: true}
	}

	budget := s.cfg.Timeout
	if s.chain.Degraded() {
		budget = s.cfg.DegradedTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	temperature := float32(0.1)
	result := s.chain.Execute(ctx, provider.GenInput{
		System:      classifierSystemPrompt,
		Messages:    []provider.GenMessage{{Role: provider.RoleUser, Content: s.buildPrompt(ctx, message, history)}},
		Temperature: &temperature,
	})
	if !result.Success {
		log.Printf("[classifier] capability degraded kind=%s attempts=%d", result.ErrorKind, len(result.Attempts))
		return Suggestion{Severity: safetymodel.SeverityInfo, ParseFailed: true}
	}

	payload, err := parseAssessment(result.Payload.Text)
	if err != nil {
		log.Printf("[classifier] parse failed provider=%s: %v", result.ProviderID, err)
		return Suggestion{Severity: safetymodel.SeverityInfo, ParseFailed: true, ProviderID: result.ProviderID}
	}

	severity, _ := safetymodel.ParseSeverity(payload.ConcernLevel)
	return Suggestion{
		Severity:   severity,
		Rationale:  strings.TrimSpace(payload.Reason),
		Emotion:    strings.ToLower(strings.TrimSpace(payload.Emotion)),
		ProviderID: result.ProviderID,
	}
}

// buildPrompt assembles history, optional knowledge snippets and the message
// under assessment.
func (s *Service) buildPrompt(ctx context.Context, message chat.Message, history []chat.Message) string {
	var builder strings.Builder

	if s.retriever != nil && s.cfg.RetrievalK > 0 {
		// Enrichment is best effort; retrieval failure must never block the
		// classification itself.
		snippetCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		snippets, err := s.retriever.Retrieve(snippetCtx, message.Content, s.cfg.RetrievalK)
		cancel()
		if err == nil && len(snippets) > 0 {
			builder.WriteString("Reference notes:\n")
			for _, snip := range snippets {
				builder.WriteString("- ")
				builder.WriteString(strings.TrimSpace(snip.Text))
				builder.WriteString("\n")
			}
			builder.WriteString("\n")
		}
	}

	builder.WriteString("Recent conversation:\n")
	builder.WriteString(formatHistory(history, s.cfg.HistoryLimit))
	builder.WriteString("\n\nChild's latest message:\n")
	builder.WriteString(message.Content)
	builder.WriteString("\n\nRespond with the JSON assessment.")
	return builder.String()
}

func formatHistory(messages []chat.Message, limit int) string {
	if len(messages) == 0 {
		return "(no prior messages)"
	}
	if limit < 1 {
		limit = 1
	}
	start := len(messages) - limit
	if start < 0 {
		start = 0
	}

	var builder strings.Builder
	for i := start; i < len(messages); i++ {
		msg := messages[i]
		role := "Child"
		if strings.EqualFold(msg.Sender, chat.SenderAssistant) {
			role = "Assistant"
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		builder.WriteString(role)
		builder.WriteString(": ")
		builder.WriteString(content)
		if i < len(messages)-1 {
			builder.WriteString("\n")
		}
	}
	if builder.Len() == 0 {
		return "(no prior messages)"
	}
	return builder.String()
}

type assessmentPayload struct {
	IsSafe       *bool  `json:"is_safe"`
	ConcernLevel string `json:"concern_level"`
	Reason       string `json:"reason"`
	Emotion      string `json:"emotion"`
	ParentAlert  bool   `json:"parent_alert"`
}

// parseAssessment extracts the first JSON object from the generation output.
// Models wrap JSON in prose or code fences often enough that a plain Unmarshal
// is not good enough.
func parseAssessment(content string) (*assessmentPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &assessmentPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}

const classifierSystemPrompt = "You are a child-safety analysis system reviewing messages a child sends to an assistant. " +
	"Assess the latest message in light of the recent conversation. " +
	"Return only a JSON object with fields: is_safe (boolean), concern_level (one of none/low/medium/high/critical), " +
	"reason (short explanation), emotion (one of happy/sad/angry/scared/frustrated/excited/neutral/concerned), " +
	"parent_alert (boolean, true when a guardian should be told). No extra text."
