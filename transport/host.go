package transport

import (
	"errors"

	wapc "github.com/wapc/wapc-guest-tinygo"

	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/wire"
)

// HostConfig controls how a Host transport interacts with the host runtime.
type HostConfig struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig remotelog.RuntimeConfig

	// HostCall overrides the waPC host function used for delivery.
	HostCall HostCall
}

// Host sends batches to the Tarmac logging capability.
type Host struct {
	runtime  remotelog.RuntimeConfig
	hostCall HostCall
}

// Ensure Host satisfies the Transport interface at compile time.
var _ Transport = (*Host)(nil)

// NewHost creates a Host transport with namespace defaults and optional host-call override.
func NewHost(config HostConfig) (*Host, error) {
	runtime, err := config.SDKConfig.Normalize()
	if err != nil {
		return nil, err
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &Host{runtime: runtime, hostCall: hostCall}, nil
}

// Send encodes b as OTLP protobuf and hands it to the host.
func (h *Host) Send(b wire.Batch) (string, error) {
	payload, err := wire.EncodeBatch(b, wire.FormatProto)
	if err != nil {
		return "", errors.Join(ErrMarshalRequest, err)
	}

	resp, err := h.hostCall(h.runtime.Namespace, CapabilityName, FnBatch, payload)
	if err != nil {
		return "", errors.Join(remotelog.ErrHostCall, err)
	}

	return wire.DecodeResult(resp)
}
