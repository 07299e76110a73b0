package logging

import (
	"sync/atomic"

	remotelog "github.com/tarmac-project/remotelog"
)

// Logger logs records under one category.
type Logger struct {
	facade   *Facade
	category string
	level    atomic.Int32
}

func newLogger(f *Facade, category string, level remotelog.Level) *Logger {
	l := &Logger{facade: f, category: category}
	l.level.Store(int32(level))
	return l
}

// Name returns the logger category.
func (l *Logger) Name() string { return l.category }

// Level returns the logger threshold.
func (l *Logger) Level() remotelog.Level { return remotelog.Level(l.level.Load()) }

// SetLevel changes the logger threshold. Invalid levels are ignored.
func (l *Logger) SetLevel(level remotelog.Level) {
	if level.Valid() {
		l.level.Store(int32(level))
	}
}

// IsEnabled reports whether records at level pass this logger.
func (l *Logger) IsEnabled(level remotelog.Level) bool {
	return l.Level().Enabled(level)
}

// Log creates a record and hands it to the façade's handlers when level is enabled.
func (l *Logger) Log(level remotelog.Level, message string, cause error) {
	if l.facade.disabled || !l.IsEnabled(level) {
		return
	}

	l.facade.dispatch(remotelog.Record{
		Time:     l.facade.now(),
		Level:    level,
		Category: l.category,
		Message:  message,
		Cause:    cause,
	})
}
