package hostmock

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnexpectedNamespace is returned when the namespace is not as expected.
	ErrUnexpectedNamespace = errors.New("unexpected namespace")

	// ErrUnexpectedCapability is returned when the capability is not as expected.
	ErrUnexpectedCapability = errors.New("unexpected capability")

	// ErrUnexpectedFunction is returned when the function is not as expected.
	ErrUnexpectedFunction = errors.New("unexpected function")

	// ErrOperationFailed is returned when Fail is set without a custom error.
	ErrOperationFailed = errors.New("operation failed")
)

// Call captures a single host call observed by the mock.
type Call struct {
	Namespace  string
	Capability string
	Function   string
	Payload    []byte
}

// reply is a scripted answer for one call.
type reply struct {
	payload []byte
	err     error
}

// Config represents the configuration for creating a Mock instance.
type Config struct {
	// ExpectedNamespace defines the namespace expected in the host call. Empty matches any.
	ExpectedNamespace string

	// ExpectedCapability defines the capability expected in the host call. Empty matches any.
	ExpectedCapability string

	// ExpectedFunction defines the function name expected in the host call. Empty matches any.
	ExpectedFunction string

	// Error is the error to return if the mock is configured to fail.
	Error error

	// PayloadValidator validates the payload passed to the host call.
	PayloadValidator func([]byte) error

	// Response defines the response to return for the host call.
	Response func() []byte

	// Fail indicates whether the mock should return an error.
	Fail bool
}

// Mock simulates the waPC host. It is safe for concurrent use.
type Mock struct {
	cfg Config

	mu      sync.Mutex
	calls   []Call
	replies []reply
	hook    func(Call)
}

// New creates a new instance of the Mock based on the provided Config.
func New(config Config) (*Mock, error) {
	return &Mock{cfg: config}, nil
}

// Reply queues a scripted answer consumed by the next unanswered call.
func (m *Mock) Reply(payload []byte, err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, reply{payload: payload, err: err})
	return m
}

// OnCall registers a hook invoked with each call before it is answered. The
// hook runs without the mock's lock held, so it may call back into the code under test.
func (m *Mock) OnCall(hook func(Call)) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
	return m
}

// Calls returns a copy of the recorded calls in arrival order.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// HostCall simulates a host call, validating inputs and returning a response or error.
func (m *Mock) HostCall(namespace, capability, function string, payload []byte) ([]byte, error) {
	call := Call{
		Namespace:  namespace,
		Capability: capability,
		Function:   function,
		Payload:    append([]byte(nil), payload...),
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	hook := m.hook
	var scripted *reply
	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		scripted = &r
	}
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	if scripted != nil {
		return scripted.payload, scripted.err
	}

	return m.answer(call)
}

func (m *Mock) answer(call Call) ([]byte, error) {
	// Return user-defined error if Fail is set
	if m.cfg.Fail && m.cfg.Error != nil {
		return nil, m.cfg.Error
	}

	if m.cfg.Fail {
		return nil, ErrOperationFailed
	}

	if m.cfg.ExpectedNamespace != "" && m.cfg.ExpectedNamespace != call.Namespace {
		return nil, fmt.Errorf(
			"%w: expected namespace %s, got %s",
			ErrUnexpectedNamespace,
			m.cfg.ExpectedNamespace,
			call.Namespace,
		)
	}

	if m.cfg.ExpectedCapability != "" && m.cfg.ExpectedCapability != call.Capability {
		return nil, fmt.Errorf(
			"%w: expected capability %s, got %s",
			ErrUnexpectedCapability,
			m.cfg.ExpectedCapability,
			call.Capability,
		)
	}

	if m.cfg.ExpectedFunction != "" && m.cfg.ExpectedFunction != call.Function {
		return nil, fmt.Errorf("%w: expected function %s, got %s", ErrUnexpectedFunction, m.cfg.ExpectedFunction, call.Function)
	}

	if m.cfg.PayloadValidator != nil {
		if err := m.cfg.PayloadValidator(call.Payload); err != nil {
			return nil, err
		}
	}

	if m.cfg.Response != nil {
		return m.cfg.Response(), nil
	}

	return nil, nil
}
