package batchtest

import (
	"sync"

	"github.com/tarmac-project/remotelog/transport"
	"github.com/tarmac-project/remotelog/wire"
)

// Outcome is a scripted result for one Send.
type Outcome struct {
	// Message is returned as the sink's application-level error.
	Message string
	// Err is returned as a transport failure.
	Err error
}

// Transport records batches and answers with scripted outcomes. Unscripted
// sends are acknowledged. It is safe for concurrent use.
type Transport struct {
	mu       sync.Mutex
	batches  []wire.Batch
	outcomes []Outcome
	onSend   func(wire.Batch)
	inFlight int
	maxSeen  int
}

// Ensure Transport satisfies the transport.Transport interface at compile time.
var _ transport.Transport = (*Transport)(nil)

// NewTransport returns a Transport that acknowledges every batch.
func NewTransport() *Transport {
	return &Transport{}
}

// Reply queues an outcome for the next unanswered Send.
func (t *Transport) Reply(o Outcome) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, o)
	return t
}

// OnSend registers a hook run during each Send, after the batch is recorded
// and before the outcome is returned.
func (t *Transport) OnSend(hook func(wire.Batch)) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSend = hook
	return t
}

// Send records b and returns the next scripted outcome.
func (t *Transport) Send(b wire.Batch) (string, error) {
	t.mu.Lock()
	t.batches = append(t.batches, b)
	t.inFlight++
	if t.inFlight > t.maxSeen {
		t.maxSeen = t.inFlight
	}
	hook := t.onSend
	var o Outcome
	if len(t.outcomes) > 0 {
		o = t.outcomes[0]
		t.outcomes = t.outcomes[1:]
	}
	t.mu.Unlock()

	if hook != nil {
		hook(b)
	}

	t.mu.Lock()
	t.inFlight--
	t.mu.Unlock()

	return o.Message, o.Err
}

// Batches returns the recorded batches in send order.
func (t *Transport) Batches() []wire.Batch {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]wire.Batch, len(t.batches))
	copy(out, t.batches)
	return out
}

// Messages returns the message of every delivered record, flattened in send order.
func (t *Transport) Messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, b := range t.batches {
		for _, r := range b.Records {
			out = append(out, r.Message)
		}
	}
	return out
}

// MaxConcurrent returns the highest number of Send calls observed running at once.
func (t *Transport) MaxConcurrent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxSeen
}
