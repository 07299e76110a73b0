/*
Package hostmock provides a pretend waPC host for remotelog tests.

It records every host call a transport or metrics recorder makes and answers
with scripted replies, so tests can assert exactly which batches reached the
host, in which order, and how a client reacts to acknowledgements, partial
failures and broken calls.

Quick start

	m, _ := hostmock.New(hostmock.Config{
	  ExpectedNamespace:  "tarmac",
	  ExpectedCapability: "logging",
	  ExpectedFunction:   "batch",
	  Response: func() []byte {
	    b, _ := wire.EncodeResult("")
	    return b
	  },
	})

	m.Reply(nil, errors.New("connection reset")) // first call fails

	_, err := m.HostCall("tarmac", "logging", "batch", payload)
	for _, c := range m.Calls() {
	  // c.Namespace, c.Capability, c.Function, c.Payload
	}

Behavior

  - Scripted replies queued with Reply are consumed first, one per call.
  - If Fail is true and Error is set, HostCall returns that error.
  - If Fail is true and Error is nil, HostCall returns ErrOperationFailed.
  - Otherwise HostCall enforces the expected routing fields that are set and runs
    PayloadValidator. Response (when set) provides the returned bytes.
  - Every call is recorded, including the ones that fail validation.

Leave routing fields blank when you want a wildcard.
*/
package hostmock
