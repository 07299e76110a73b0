package logging

import (
	"fmt"
	"sync"
	"time"

	remotelog "github.com/tarmac-project/remotelog"
)

// Handler receives records accepted by a Logger.
type Handler interface {
	// IsLoggable reports whether the handler wants rec. It must not have side effects.
	IsLoggable(rec remotelog.Record) bool

	// Publish handles rec. It must not block on remote I/O.
	Publish(rec remotelog.Record)
}

// Config controls a Facade.
type Config struct {
	// Level is the threshold for loggers created on demand. The zero value enables every level.
	Level remotelog.Level

	// Disabled turns every call into a no-op.
	Disabled bool

	// Handlers receive every accepted record, in order.
	Handlers []Handler

	// Now stamps records. Defaults to time.Now.
	Now func() time.Time
}

// Facade routes leveled calls to per-category loggers and their handlers.
type Facade struct {
	level    remotelog.Level
	disabled bool
	now      func() time.Time

	mu       sync.RWMutex
	handlers []Handler
	loggers  map[string]*Logger
}

// Option customizes a single façade call.
type Option func(*callOptions)

type callOptions struct {
	category string
	cause    error
}

// WithCategory logs the call under category instead of remotelog.DefaultCategory.
func WithCategory(category string) Option {
	return func(o *callOptions) { o.category = category }
}

// WithCause attaches err to the record.
func WithCause(err error) Option {
	return func(o *callOptions) { o.cause = err }
}

// New creates a Facade.
func New(config Config) (*Facade, error) {
	if !config.Level.Valid() {
		return nil, fmt.Errorf("%w: %d", remotelog.ErrInvalidLevel, int8(config.Level))
	}

	f := &Facade{
		level:    config.Level,
		disabled: config.Disabled,
		now:      config.Now,
		handlers: append([]Handler(nil), config.Handlers...),
		loggers:  make(map[string]*Logger),
	}
	if f.now == nil {
		f.now = time.Now
	}

	return f, nil
}

// Logger returns the logger for category, creating it at the façade level if needed.
func (f *Facade) Logger(category string) *Logger {
	if category == "" {
		category = remotelog.DefaultCategory
	}

	f.mu.RLock()
	l, ok := f.loggers[category]
	f.mu.RUnlock()
	if ok {
		return l
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.loggers[category]; ok {
		return l
	}
	l = newLogger(f, category, f.level)
	f.loggers[category] = l
	return l
}

// AddLogger registers a logger for category at level, replacing any existing one.
func (f *Facade) AddLogger(category string, level remotelog.Level) (*Logger, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: %d", remotelog.ErrInvalidLevel, int8(level))
	}
	if category == "" {
		category = remotelog.DefaultCategory
	}

	l := newLogger(f, category, level)

	f.mu.Lock()
	f.loggers[category] = l
	f.mu.Unlock()
	return l, nil
}

// Clear forgets every registered logger.
func (f *Facade) Clear() {
	f.mu.Lock()
	f.loggers = make(map[string]*Logger)
	f.mu.Unlock()
}

// AddHandler appends h to the handlers that receive accepted records.
func (f *Facade) AddHandler(h Handler) {
	f.mu.Lock()
	f.handlers = append(f.handlers, h)
	f.mu.Unlock()
}

// Enabled reports whether category would accept level, without registering a
// logger. It fits batch.Config.Enabled.
func (f *Facade) Enabled(category string, level remotelog.Level) bool {
	if f.disabled {
		return false
	}
	if category == "" {
		category = remotelog.DefaultCategory
	}

	f.mu.RLock()
	l, ok := f.loggers[category]
	f.mu.RUnlock()
	if ok {
		return l.IsEnabled(level)
	}
	return f.level.Enabled(level)
}

func (f *Facade) Trace(message string, opts ...Option) { f.log(remotelog.LevelTrace, message, opts) }
func (f *Facade) Debug(message string, opts ...Option) { f.log(remotelog.LevelDebug, message, opts) }
func (f *Facade) Info(message string, opts ...Option)  { f.log(remotelog.LevelInfo, message, opts) }
func (f *Facade) Warn(message string, opts ...Option)  { f.log(remotelog.LevelWarn, message, opts) }
func (f *Facade) Error(message string, opts ...Option) { f.log(remotelog.LevelError, message, opts) }
func (f *Facade) Fatal(message string, opts ...Option) { f.log(remotelog.LevelFatal, message, opts) }

// IsLoggingEnabled reports whether the façade was created enabled.
func (f *Facade) IsLoggingEnabled() bool { return !f.disabled }

func (f *Facade) IsTraceEnabled() bool { return f.Enabled(remotelog.DefaultCategory, remotelog.LevelTrace) }
func (f *Facade) IsDebugEnabled() bool { return f.Enabled(remotelog.DefaultCategory, remotelog.LevelDebug) }
func (f *Facade) IsInfoEnabled() bool  { return f.Enabled(remotelog.DefaultCategory, remotelog.LevelInfo) }
func (f *Facade) IsWarnEnabled() bool  { return f.Enabled(remotelog.DefaultCategory, remotelog.LevelWarn) }
func (f *Facade) IsErrorEnabled() bool { return f.Enabled(remotelog.DefaultCategory, remotelog.LevelError) }
func (f *Facade) IsFatalEnabled() bool { return f.IsErrorEnabled() }

func (f *Facade) log(level remotelog.Level, message string, opts []Option) {
	if f.disabled {
		return
	}

	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	f.Logger(o.category).Log(level, message, o.cause)
}

// dispatch offers rec to every handler that accepts it.
func (f *Facade) dispatch(rec remotelog.Record) {
	f.mu.RLock()
	handlers := f.handlers
	f.mu.RUnlock()

	for _, h := range handlers {
		if h.IsLoggable(rec) {
			h.Publish(rec)
		}
	}
}
