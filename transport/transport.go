package transport

import (
	"errors"

	"github.com/tarmac-project/remotelog/wire"
)

// CapabilityName is the host capability batches are sent to.
const CapabilityName = "logging"

// FnBatch is the logging capability function that accepts a batch.
const FnBatch = "batch"

var (
	// ErrMarshalRequest wraps failures while encoding the request payload.
	ErrMarshalRequest = errors.New("failed to create request")

	// ErrUnmarshalResponse wraps failures while decoding the host response.
	ErrUnmarshalResponse = errors.New("failed to unmarshal response")

	// ErrInvalidURL indicates a malformed or unsupported collector URL.
	ErrInvalidURL = errors.New("invalid URL provided")
)

// HostCall defines the waPC host function signature used by transports.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Transport sends one batch and reports the outcome.
type Transport interface {
	// Send delivers b. The returned string is the sink's application-level
	// error message, empty when the batch was acknowledged. A non-nil error
	// means the delivery did not complete.
	Send(b wire.Batch) (string, error)
}

// Func adapts a plain function to the Transport interface.
type Func func(b wire.Batch) (string, error)

// Send calls f(b).
func (f Func) Send(b wire.Batch) (string, error) { return f(b) }
