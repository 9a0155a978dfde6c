package provider

import "sync"

// degradedThreshold is how many consecutive failed invocations mark a
// capability degraded.
const degradedThreshold = 3

// Health tracks consecutive chain-level failures. It informs budget
// optimizations only; a degraded chain still executes normally.
type Health struct {
	mu                  sync.Mutex
	consecutiveFailures int
}

func newHealth() *Health {
	return &Health{}
}

// RecordSuccess resets the failure streak.
func (h *Health) RecordSuccess() {
	h.mu.Lock()
	h.consecutiveFailures = 0
	h.mu.Unlock()
}

// RecordFailure notes another exhausted invocation.
func (h *Health) RecordFailure() {
	h.mu.Lock()
	h.consecutiveFailures++
	h.mu.Unlock()
}

// Degraded reports whether the failure streak reached the threshold.
func (h *Health) Degraded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFailures >= degradedThreshold
}
