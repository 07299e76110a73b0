package batch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/metrics"
	"github.com/tarmac-project/remotelog/transport"
	"github.com/tarmac-project/remotelog/wire"
)

// DefaultDelay is how long records accumulate before a batch is sent.
const DefaultDelay = 100 * time.Millisecond

// Threshold presets for the common dispatcher configurations.
const (
	PresetAll   = remotelog.LevelTrace
	PresetDebug = remotelog.LevelDebug
	PresetInfo  = remotelog.LevelInfo
	PresetWarn  = remotelog.LevelWarn
	PresetError = remotelog.LevelError
)

var (
	// ErrInvalidDelay is returned when the coalescing delay is negative.
	ErrInvalidDelay = errors.New("coalescing delay cannot be negative")

	// ErrTransportPanic is recorded when a transport panics during delivery.
	ErrTransportPanic = errors.New("transport panicked during delivery")
)

// State is the delivery state of a Dispatcher.
type State int

const (
	// StateIdle means no flush is scheduled or running.
	StateIdle State = iota
	// StateScheduled means a flush will run once the coalescing delay expires.
	StateScheduled
	// StateInFlight means a batch was handed to the transport and its outcome is pending.
	StateInFlight
	// StatePoisoned means a delivery failed and the dispatcher no longer accepts records.
	StatePoisoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateInFlight:
		return "in-flight"
	case StatePoisoned:
		return "poisoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config controls how a Dispatcher filters, batches and delivers records.
type Config struct {
	// SDKConfig provides the runtime namespace used by the default transport.
	SDKConfig remotelog.RuntimeConfig

	// MinLevel is the lowest level delivered. The zero value accepts every level.
	MinLevel remotelog.Level

	// Delay is the coalescing delay. Zero means DefaultDelay.
	Delay time.Duration

	// Transport delivers batches. Defaults to the host logging capability.
	Transport transport.Transport

	// HostCall overrides the waPC host function used by the default transport
	// and, when Metrics is unset, by the default host metrics.
	HostCall transport.HostCall

	// Scheduler runs the delayed flush. Defaults to the runtime timer.
	//
	// A waPC guest only executes while the host is calling into it, so timers
	// set by the default scheduler may not fire after the last invocation.
	// Guests that need delivery within a call should supply a scheduler driven
	// from their handlers, such as one that runs fn immediately or one that the
	// handler advances before returning. Schedule is never called with the
	// dispatcher's lock held, so running fn inline is safe.
	Scheduler Scheduler

	// Enabled is the façade's category check, consulted by IsLoggable. Nil allows everything.
	Enabled func(category string, level remotelog.Level) bool

	// Logger receives the dispatcher's own diagnostics. It must not route
	// records back into the same dispatcher. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics receives delivery events. When the dispatcher builds its default
	// host transport it also defaults to host metrics over the same HostCall;
	// otherwise it defaults to metrics.Nop.
	Metrics metrics.Recorder

	// NewBatchID generates batch identifiers. Defaults to random UUIDs.
	NewBatchID func() string
}

// Dispatcher queues records and delivers them in batches, one delivery at a time.
type Dispatcher struct {
	minLevel   remotelog.Level
	delay      time.Duration
	transport  transport.Transport
	scheduler  Scheduler
	enabled    func(string, remotelog.Level) bool
	logger     *zap.Logger
	metrics    metrics.Recorder
	newBatchID func() string

	// mu guards the fields below. It is never held across the transport,
	// the logger or the metrics recorder.
	mu      sync.Mutex
	queue   []remotelog.Record
	state   State
	failure error
}

// New creates a Dispatcher from config, applying defaults for unset fields.
func New(config Config) (*Dispatcher, error) {
	if !config.MinLevel.Valid() {
		return nil, fmt.Errorf("%w: %d", remotelog.ErrInvalidLevel, int8(config.MinLevel))
	}

	if config.Delay < 0 {
		return nil, ErrInvalidDelay
	}

	d := &Dispatcher{
		minLevel:   config.MinLevel,
		delay:      config.Delay,
		transport:  config.Transport,
		scheduler:  config.Scheduler,
		enabled:    config.Enabled,
		logger:     config.Logger,
		metrics:    config.Metrics,
		newBatchID: config.NewBatchID,
	}

	if d.delay == 0 {
		d.delay = DefaultDelay
	}

	if d.transport == nil {
		host, err := transport.NewHost(transport.HostConfig{SDKConfig: config.SDKConfig, HostCall: config.HostCall})
		if err != nil {
			return nil, err
		}
		d.transport = host

		if d.metrics == nil {
			m, err := metrics.NewHost(metrics.Config{
				SDKConfig: config.SDKConfig,
				HostCall:  metrics.HostCall(config.HostCall),
			})
			if err != nil {
				return nil, err
			}
			d.metrics = m
		}
	}

	if d.scheduler == nil {
		d.scheduler = timerScheduler{}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.metrics == nil {
		d.metrics = metrics.Nop{}
	}
	if d.newBatchID == nil {
		d.newBatchID = uuid.NewString
	}

	return d, nil
}

// MinLevel returns the configured threshold.
func (d *Dispatcher) MinLevel() remotelog.Level { return d.minLevel }

// IsLoggable reports whether rec meets the threshold and passes the façade's
// category check. It has no side effects.
func (d *Dispatcher) IsLoggable(rec remotelog.Record) bool {
	if !d.minLevel.Enabled(rec.Level) {
		return false
	}
	return d.enabled == nil || d.enabled(rec.Name(), rec.Level)
}

// Publish queues rec for delivery. Records below the threshold, and every
// record once the dispatcher is poisoned, are silently dropped.
func (d *Dispatcher) Publish(rec remotelog.Record) {
	if !d.IsLoggable(rec) {
		return
	}

	d.mu.Lock()
	if d.state == StatePoisoned {
		d.mu.Unlock()
		d.metrics.Dropped(1)
		return
	}
	d.queue = append(d.queue, rec)
	schedule := d.claimScheduleLocked()
	d.mu.Unlock()

	if schedule {
		d.scheduler.Schedule(d.delay, d.flush)
	}
}

// State returns the current delivery state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending returns the number of queued records not yet handed to the transport.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Err returns the transport failure that poisoned the dispatcher, if any.
func (d *Dispatcher) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failure
}

// claimScheduleLocked moves an idle dispatcher with queued records to
// StateScheduled and reports whether the caller must schedule the flush once
// it has released the lock. In any other state it reports false.
func (d *Dispatcher) claimScheduleLocked() bool {
	if d.state != StateIdle || len(d.queue) == 0 {
		return false
	}
	d.state = StateScheduled
	return true
}

// flush runs when the coalescing delay expires. The queue is swapped out before
// the transport is called so records published meanwhile start the next batch.
func (d *Dispatcher) flush() {
	d.mu.Lock()
	if d.state != StateScheduled {
		d.mu.Unlock()
		return
	}
	records := d.queue
	d.queue = nil
	d.state = StateInFlight
	d.mu.Unlock()

	b := wire.Batch{ID: d.newBatchID(), Records: records}
	d.metrics.BatchSent(len(records))

	msg, err := d.send(b)
	if err != nil {
		d.fail(b, err)
		return
	}
	d.acknowledge(b, msg)
}

// send calls the transport, turning a panic into a delivery failure.
func (d *Dispatcher) send(b wire.Batch) (msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg, err = "", fmt.Errorf("%w: %v", ErrTransportPanic, r)
		}
	}()
	return d.transport.Send(b)
}

// acknowledge handles a completed delivery, with or without a sink error, and
// starts the next cycle for anything queued while the batch was in flight.
func (d *Dispatcher) acknowledge(b wire.Batch, msg string) {
	if msg != "" {
		d.logger.Error("Remote logging failed",
			zap.String("batch_id", b.ID),
			zap.Int("records", len(b.Records)),
			zap.String("reason", msg),
		)
		d.metrics.Rejected()
	} else {
		d.logger.Debug("Remote logging batch acknowledged",
			zap.String("batch_id", b.ID),
			zap.Int("records", len(b.Records)),
		)
	}

	d.mu.Lock()
	d.state = StateIdle
	schedule := d.claimScheduleLocked()
	d.mu.Unlock()

	if schedule {
		d.scheduler.Schedule(d.delay, d.flush)
	}
}

// fail poisons the dispatcher. Records queued during the failed delivery are discarded.
func (d *Dispatcher) fail(b wire.Batch, err error) {
	d.logger.Error("Remote logging failed, disabling remote delivery",
		zap.String("batch_id", b.ID),
		zap.Int("records", len(b.Records)),
		zap.Error(err),
	)
	d.metrics.Failed()

	d.mu.Lock()
	d.failure = err
	d.state = StatePoisoned
	dropped := len(d.queue)
	d.queue = nil
	d.mu.Unlock()

	if dropped > 0 {
		d.metrics.Dropped(dropped)
	}
}
