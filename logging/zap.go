package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	remotelog "github.com/tarmac-project/remotelog"
)

// ZapLevel maps a record level onto zap. zap has no trace level, so TRACE is written at debug.
func ZapLevel(l remotelog.Level) zapcore.Level {
	switch l {
	case remotelog.LevelTrace, remotelog.LevelDebug:
		return zapcore.DebugLevel
	case remotelog.LevelInfo:
		return zapcore.InfoLevel
	case remotelog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// ZapHandler writes records to a zap logger, one child logger per category.
type ZapHandler struct {
	logger *zap.Logger
}

// Ensure ZapHandler satisfies the Handler interface at compile time.
var _ Handler = (*ZapHandler)(nil)

// NewZapHandler creates a handler writing to logger. A nil logger discards records.
func NewZapHandler(logger *zap.Logger) *ZapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapHandler{logger: logger}
}

// IsLoggable reports whether the zap core is enabled for the record's level.
func (h *ZapHandler) IsLoggable(rec remotelog.Record) bool {
	return h.logger.Core().Enabled(ZapLevel(rec.Level))
}

// Publish writes rec, keeping its original timestamp.
func (h *ZapHandler) Publish(rec remotelog.Record) {
	ce := h.logger.Named(rec.Name()).Check(ZapLevel(rec.Level), rec.Message)
	if ce == nil {
		return
	}
	if !rec.Time.IsZero() {
		ce.Time = rec.Time
	}

	var fields []zap.Field
	if rec.Level == remotelog.LevelTrace {
		fields = append(fields, zap.String("level_name", rec.Level.String()))
	}
	if rec.Cause != nil {
		fields = append(fields, zap.Error(rec.Cause))
	}
	ce.Write(fields...)
}
