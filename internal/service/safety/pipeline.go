// Package safety drives one message through the full detection path: keyword
// scan and contextual classification in parallel, one merged alert decision,
// then fire-and-forget delivery to live guardians.
package safety

import (
	"context"
	"log"

	scanner "github.com/zhouzirui/kidwatch/backend/internal/analysis/safety"
	chatmodel "github.com/zhouzirui/kidwatch/backend/internal/model/chat"
	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
	"github.com/zhouzirui/kidwatch/backend/internal/service/alert"
	"github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	"github.com/zhouzirui/kidwatch/backend/internal/service/classifier"
	"github.com/zhouzirui/kidwatch/backend/internal/service/notify"
)

// Decision is what the conversational caller gets back. Proceed tells it
// whether the normal assistant turn should continue; nothing in here ever
// surfaces a raw provider error to the child.
type Decision struct {
	Severity           safetymodel.Severity    `json:"level"`
	Proceed            bool                    `json:"proceed"`
	Alert              *safetymodel.AlertEvent `json:"alert,omitempty"`
	Emotion            string                  `json:"emotion,omitempty"`
	KeywordMatches     []string                `json:"keywordMatches,omitempty"`
	ClassifierDegraded bool                    `json:"classifierDegraded,omitempty"`
}

// historyDepth is how many prior turns feed the classifier's context window.
const historyDepth = 5

// Pipeline is the single entry point for safety processing.
type Pipeline struct {
	chatSvc    *chat.Service
	classifier *classifier.Service
	engine     *alert.Engine
	dispatcher *notify.Dispatcher
}

// NewPipeline wires the stages together. classifier may be nil when no text
// capability is configured; the keyword layer then governs alone.
func NewPipeline(chatSvc *chat.Service, cls *classifier.Service, engine *alert.Engine, dispatcher *notify.Dispatcher) *Pipeline {
	return &Pipeline{
		chatSvc:    chatSvc,
		classifier: cls,
		engine:     engine,
		dispatcher: dispatcher,
	}
}

// Process runs the detection path for one inbound child message and returns
// the decision. It blocks on scanning, classification and the alert decision,
// but never on notification delivery.
func (p *Pipeline) Process(ctx context.Context, session chatmodel.Session, content string) Decision {
	history, err := p.chatSvc.RecentMessages(ctx, session.ID, historyDepth)
	if err != nil {
		history = nil
	}

	message := chatmodel.Message{
		SessionID: session.ID,
		Sender:    chatmodel.SenderChild,
		Content:   content,
	}
	stored, err := p.chatSvc.SaveMessage(ctx, message)
	if err != nil {
		// Storage trouble must not suppress detection of the message we have
		// in hand.
		log.Printf("[pipeline] failed to save message session=%s: %v", session.ID, err)
	} else {
		message = stored
	}

	// Scanner and classifier are independent reads of the same message; the
	// classifier goes to the network, the scanner never does.
	suggestionCh := make(chan classifier.Suggestion, 1)
	go func() {
		suggestionCh <- p.classify(ctx, message, history)
	}()

	scan := scanner.Scan(content)
	suggestion := <-suggestionCh

	if suggestion.ParseFailed {
		log.Printf("[pipeline] classifier degraded for session=%s, keyword layer governs", session.ID)
	}

	event := p.engine.Decide(ctx, message, scan, suggestion)
	if event != nil {
		p.dispatcher.Publish(session.GuardianID, event)
	}

	severity := safetymodel.MaxSeverity(scan.Severity, suggestion.Severity)
	return Decision{
		Severity:           severity,
		Proceed:            severity < safetymodel.SeverityEmergency,
		Alert:              event,
		Emotion:            suggestion.Emotion,
		KeywordMatches:     scan.Matches,
		ClassifierDegraded: suggestion.ParseFailed,
	}
}

// TriggerEmergency is the manual path: always a fresh EMERGENCY event, always
// published, dedup window notwithstanding.
func (p *Pipeline) TriggerEmergency(ctx context.Context, session chatmodel.Session, reason string) *safetymodel.AlertEvent {
	event := p.engine.ManualTrigger(ctx, session.ID, reason)
	p.dispatcher.Publish(session.GuardianID, event)
	return event
}

func (p *Pipeline) classify(ctx context.Context, message chatmodel.Message, history []chatmodel.Message) classifier.Suggestion {
	if p.classifier == nil {
		return classifier.Suggestion{Severity: safetymodel.SeverityInfo, ParseFailed: true}
	}
	return p.classifier.Classify(ctx, message, history)
}
