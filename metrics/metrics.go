package metrics

import (
	"errors"
	"regexp"

	wapc "github.com/wapc/wapc-guest-tinygo"

	proto "github.com/tarmac-project/protobuf-go/sdk/metrics"
	remotelog "github.com/tarmac-project/remotelog"
)

const (
	capabilityName = "metrics"
	fnCounter      = "counter"
	fnHistogram    = "histogram"

	// DefaultPrefix is prepended to metric names when Config.Prefix is empty.
	DefaultPrefix = "remotelog"
)

// Metric name suffixes.
const (
	nameBatches    = "_batches_total"
	nameBatchSize  = "_batch_size"
	nameDropped    = "_records_dropped_total"
	nameRejections = "_delivery_rejections_total"
	nameFailures   = "_delivery_failures_total"
)

var (
	// ErrInvalidMetricName indicates a metric prefix that does not match the supported format.
	ErrInvalidMetricName = errors.New("metric name is invalid")

	// isMetricNameValid validates metric names using the same pattern as tarmac callback validation.
	isMetricNameValid = regexp.MustCompile(`^[a-zA-Z0-9_:][a-zA-Z0-9_:]*$`)
)

// HostCall defines the waPC host function signature used by metrics operations.
type HostCall func(string, string, string, []byte) ([]byte, error)

// Recorder receives dispatcher events.
type Recorder interface {
	// BatchSent records one delivery attempt carrying size records.
	BatchSent(size int)

	// Dropped records n records discarded because delivery is disabled.
	Dropped(n int)

	// Rejected records a batch the sink processed with an error message.
	Rejected()

	// Failed records a delivery that did not complete.
	Failed()
}

// Nop discards every event.
type Nop struct{}

func (Nop) BatchSent(int) {}
func (Nop) Dropped(int)   {}
func (Nop) Rejected()     {}
func (Nop) Failed()       {}

// Config controls how a Host recorder interacts with the host runtime.
type Config struct {
	// SDKConfig provides the runtime namespace used for host calls.
	SDKConfig remotelog.RuntimeConfig

	// Prefix is prepended to every metric name. Defaults to DefaultPrefix.
	Prefix string

	// HostCall overrides the waPC host function used for metrics operations.
	HostCall HostCall
}

// Host emits dispatcher events as host metrics.
type Host struct {
	namespace string
	prefix    string
	hostCall  HostCall
}

// Ensure Host and Nop satisfy the Recorder interface at compile time.
var (
	_ Recorder = (*Host)(nil)
	_ Recorder = Nop{}
)

// NewHost creates a metrics recorder with namespace defaults and optional host-call override.
func NewHost(config Config) (*Host, error) {
	runtime, err := config.SDKConfig.Normalize()
	if err != nil {
		return nil, err
	}

	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !isMetricNameValid.MatchString(prefix) {
		return nil, ErrInvalidMetricName
	}

	hostCall := config.HostCall
	if hostCall == nil {
		hostCall = wapc.HostCall
	}

	return &Host{namespace: runtime.Namespace, prefix: prefix, hostCall: hostCall}, nil
}

// BatchSent increments the batch counter and observes the batch size.
func (h *Host) BatchSent(size int) {
	h.inc(nameBatches)
	h.observe(nameBatchSize, float64(size))
}

// Dropped increments the dropped-record counter n times.
func (h *Host) Dropped(n int) {
	for i := 0; i < n; i++ {
		h.inc(nameDropped)
	}
}

// Rejected increments the rejection counter.
func (h *Host) Rejected() { h.inc(nameRejections) }

// Failed increments the failure counter.
func (h *Host) Failed() { h.inc(nameFailures) }

// inc sends a counter increment to the host runtime as a best-effort call.
func (h *Host) inc(suffix string) {
	payload, err := (&proto.MetricsCounter{Name: h.prefix + suffix}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.namespace, capabilityName, fnCounter, payload)
}

// observe records a histogram value as a best-effort call.
func (h *Host) observe(suffix string, value float64) {
	payload, err := (&proto.MetricsHistogram{Name: h.prefix + suffix, Value: value}).MarshalVT()
	if err != nil {
		return
	}
	_, _ = h.hostCall(h.namespace, capabilityName, fnHistogram, payload)
}
