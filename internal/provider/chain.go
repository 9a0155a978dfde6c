package provider

import (
	"context"
	"errors"
	"log"
	"time"
)

// Sentinel errors adapters wrap vendor failures into so the chain can classify
// an attempt without knowing the vendor SDK.
var (
	ErrAuth        = errors.New("provider authentication failed")
	ErrRateLimited = errors.New("provider rate limited")
	ErrMalformed   = errors.New("provider returned malformed response")
)

// ErrorKind classifies why a provider attempt failed.
type ErrorKind string

const (
	KindNone      ErrorKind = ""
	KindTimeout   ErrorKind = "timeout"
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rateLimited"
	KindMalformed ErrorKind = "malformedResponse"
	KindUnknown   ErrorKind = "unknown"
)

// Provider is one concrete implementation of an external capability.
type Provider[I, O any] interface {
	ID() string
	Call(ctx context.Context, input I) (O, error)
}

// Attempt records the outcome of a single candidate call, kept on the terminal
// result for diagnostics.
type Attempt struct {
	ProviderID string    `json:"providerId"`
	LatencyMs  int64     `json:"latencyMs"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Result is the terminal outcome of one chain invocation. Exactly one Result is
// produced per Execute call; a failed Result means the capability is degraded,
// not that the caller hit a fatal error.
type Result[T any] struct {
	Success    bool
	Payload    T
	ProviderID string
	LatencyMs  int64
	ErrorKind  ErrorKind
	Attempts   []Attempt
}

// Chain tries candidates strictly in priority order until one succeeds or all
// fail. Each attempt is bounded by the per-attempt timeout; a failed attempt is
// cancelled and abandoned, so no partial effect from it is observable.
type Chain[I, O any] struct {
	capability string
	candidates []Provider[I, O]
	timeout    time.Duration
	health     *Health
}

// NewChain builds a fallback chain for one capability. Candidates are tried in
// the order given.
func NewChain[I, O any](capability string, timeout time.Duration, candidates ...Provider[I, O]) *Chain[I, O] {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Chain[I, O]{
		capability: capability,
		candidates: candidates,
		timeout:    timeout,
		health:     newHealth(),
	}
}

// Capability returns the capability name this chain serves.
func (c *Chain[I, O]) Capability() string {
	return c.capability
}

// Degraded reports whether recent invocations have been failing consecutively.
// Callers may use this to shorten budgets; it never changes Execute semantics.
func (c *Chain[I, O]) Degraded() bool {
	return c.health.Degraded()
}

// Execute runs the fallback sequence and always returns a terminal Result.
func (c *Chain[I, O]) Execute(ctx context.Context, input I) Result[O] {
	var zero O
	result := Result[O]{Payload: zero}

	if len(c.candidates) == 0 {
		result.ErrorKind = KindUnknown
		c.health.RecordFailure()
		return result
	}

	for _, candidate := range c.candidates {
		attempt, payload, ok := c.tryCandidate(ctx, candidate, input)
		result.Attempts = append(result.Attempts, attempt)

		if ok {
			result.Success = true
			result.Payload = payload
			result.ProviderID = attempt.ProviderID
			result.LatencyMs = attempt.LatencyMs
			result.ErrorKind = KindNone
			c.health.RecordSuccess()
			return result
		}

		log.Printf("[provider] %s candidate %s failed kind=%s, advancing", c.capability, attempt.ProviderID, attempt.ErrorKind)

		// Parent context gone: stop burning candidates, the caller left.
		if ctx.Err() != nil {
			break
		}
	}

	last := result.Attempts[len(result.Attempts)-1]
	result.ErrorKind = last.ErrorKind
	result.LatencyMs = last.LatencyMs
	c.health.RecordFailure()
	return result
}

func (c *Chain[I, O]) tryCandidate(ctx context.Context, candidate Provider[I, O], input I) (Attempt, O, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	payload, err := candidate.Call(attemptCtx, input)
	latency := time.Since(start)

	attempt := Attempt{
		ProviderID: candidate.ID(),
		LatencyMs:  latency.Milliseconds(),
	}

	if err != nil {
		attempt.ErrorKind = Classify(attemptCtx, err)
		attempt.Error = err.Error()
		observeAttempt(c.capability, candidate.ID(), string(attempt.ErrorKind), latency)
		var zero O
		return attempt, zero, false
	}

	observeAttempt(c.capability, candidate.ID(), "success", latency)
	return attempt, payload, true
}

// Classify maps an attempt error to its ErrorKind. Timeout detection prefers
// the attempt context so a deadline hit inside a vendor SDK is still counted
// as a timeout.
func Classify(attemptCtx context.Context, err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	default:
		return KindUnknown
	}
}
