// Package notify owns the registry of live guardian subscribers and fans alert
// events out to them. Delivery is best effort; persistence happened before an
// event ever reaches this package.
package notify

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	safetymodel "github.com/zhouzirui/kidwatch/backend/internal/model/safety"
)

// Sender is the push channel collaborator one subscriber connection implements.
type Sender interface {
	Send(payload safetymodel.WirePayload) error
}

// Handle is one live subscriber channel for a guardian. Handles are owned
// exclusively by the Dispatcher.
type Handle struct {
	ID          string
	GuardianID  string
	ConnectedAt time.Time
	sender      Sender
}

type deliveryJob struct {
	guardianID string
	payload    safetymodel.WirePayload
}

// Dispatcher maintains guardian subscriptions and delivers alert events to
// them. Registry mutation is single-writer (Register/Unregister only); Publish
// works from an immutable snapshot so a concurrent connect or disconnect never
// corrupts an in-flight fan-out. Per-session ordering comes from a sequence
// counter and one delivery worker per session; sessions and subscribers within
// one publish run in parallel.
//
// Workers, seq counters and queues live for the process: one goroutine plus a
// 64-slot queue per session that ever raised an alert, an acceptable bound for
// the in-memory store this dispatcher ships with. A session reaper belongs in
// the same change that moves session state out of process.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Handle]struct{}

	sessMu sync.Mutex
	seqs   map[string]uint64
	queues map[string]chan deliveryJob

	retries int
	backoff time.Duration
}

// NewDispatcher creates a dispatcher with the given per-handle retry policy.
func NewDispatcher(retries int, backoff time.Duration) *Dispatcher {
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &Dispatcher{
		subscribers: make(map[string]map[*Handle]struct{}),
		seqs:        make(map[string]uint64),
		queues:      make(map[string]chan deliveryJob),
		retries:     retries,
		backoff:     backoff,
	}
}

// Register adds a live channel for a guardian and returns its handle.
func (d *Dispatcher) Register(guardianID string, sender Sender) *Handle {
	handle := &Handle{
		ID:          uuid.NewString(),
		GuardianID:  guardianID,
		ConnectedAt: time.Now().UTC(),
		sender:      sender,
	}

	d.mu.Lock()
	if d.subscribers[guardianID] == nil {
		d.subscribers[guardianID] = make(map[*Handle]struct{})
	}
	d.subscribers[guardianID][handle] = struct{}{}
	d.mu.Unlock()

	log.Printf("[notify] guardian=%s connected handle=%s", guardianID, handle.ID)
	return handle
}

// Unregister removes a handle. Safe to call for an already-removed handle.
func (d *Dispatcher) Unregister(handle *Handle) {
	if handle == nil {
		return
	}

	d.mu.Lock()
	if handles, ok := d.subscribers[handle.GuardianID]; ok {
		delete(handles, handle)
		if len(handles) == 0 {
			delete(d.subscribers, handle.GuardianID)
		}
	}
	d.mu.Unlock()

	log.Printf("[notify] guardian=%s disconnected handle=%s", handle.GuardianID, handle.ID)
}

// Connected reports whether the guardian currently has any live channel.
func (d *Dispatcher) Connected(guardianID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[guardianID]) > 0
}

// Publish stamps the event with the session's next sequence number and hands
// it to the session's delivery worker. It returns promptly; delivery happens
// on the worker so the caller's turn is never held open by a slow subscriber.
// Stamping and enqueueing happen under one lock so two publishes racing on the
// same session cannot enqueue out of sequence order.
func (d *Dispatcher) Publish(guardianID string, event *safetymodel.AlertEvent) {
	if event == nil {
		return
	}

	d.sessMu.Lock()
	defer d.sessMu.Unlock()

	d.seqs[event.SessionID]++
	seq := d.seqs[event.SessionID]
	queue, ok := d.queues[event.SessionID]
	if !ok {
		queue = make(chan deliveryJob, 64)
		d.queues[event.SessionID] = queue
		go d.deliverLoop(event.SessionID, queue)
	}

	queue <- deliveryJob{guardianID: guardianID, payload: safetymodel.WireFor(event, seq)}
}

// deliverLoop drains one session's queue in sequence order.
func (d *Dispatcher) deliverLoop(sessionID string, queue <-chan deliveryJob) {
	for job := range queue {
		d.fanOut(sessionID, job)
	}
}

// fanOut delivers one payload to a snapshot of the guardian's handles,
// concurrently across handles, and waits for all of them before the next
// sequence number for this session goes out.
func (d *Dispatcher) fanOut(sessionID string, job deliveryJob) {
	d.mu.RLock()
	snapshot := make([]*Handle, 0, len(d.subscribers[job.guardianID]))
	for handle := range d.subscribers[job.guardianID] {
		snapshot = append(snapshot, handle)
	}
	d.mu.RUnlock()

	if len(snapshot) == 0 {
		// No live subscriber: the event stays retrievable from storage, replay
		// is not this component's job.
		log.Printf("[notify] no subscribers for guardian=%s session=%s seq=%d", job.guardianID, sessionID, job.payload.Seq)
		return
	}

	var wg sync.WaitGroup
	for _, handle := range snapshot {
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			d.deliver(h, job.payload)
		}(handle)
	}
	wg.Wait()
}

// deliver attempts one handle with bounded retries. Failure is logged and
// dropped; it never affects the other handles.
func (d *Dispatcher) deliver(handle *Handle, payload safetymodel.WirePayload) {
	var err error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err = handle.sender.Send(payload); err == nil {
			return
		}
		if attempt < d.retries {
			time.Sleep(d.backoff)
		}
	}
	log.Printf("[notify] dropping delivery handle=%s guardian=%s after %d attempts: %v", handle.ID, handle.GuardianID, d.retries, err)
}
