package server

import (
	"errors"
	"fmt"
	"time"

	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/logging"
	"github.com/tarmac-project/remotelog/wire"
)

// DefaultMaxBodyBytes bounds HTTP request bodies, before and after decompression.
const DefaultMaxBodyBytes int64 = 4 << 20

// ErrInvalidBodyLimit is returned when MaxBodyBytes is negative.
var ErrInvalidBodyLimit = errors.New("max body bytes must not be negative")

// Config controls a Server.
type Config struct {
	// Logger receives the remote records. Defaults to zap.NewNop().
	Logger *zap.Logger

	// LoggerNameOverride, when set, replaces each record's category as the logger name.
	LoggerNameOverride string

	// MaxBodyBytes limits HTTP request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Now stamps records that arrive without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Server logs remote batches.
type Server struct {
	logger   *zap.Logger
	override string
	maxBody  int64
	now      func() time.Time
}

// New creates a Server.
func New(config Config) (*Server, error) {
	if config.MaxBodyBytes < 0 {
		return nil, ErrInvalidBodyLimit
	}

	s := &Server{
		logger:   config.Logger,
		override: config.LoggerNameOverride,
		maxBody:  config.MaxBodyBytes,
		now:      config.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxBody == 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// LogOnServer logs each record and returns the first failure message, or "" when
// every record was written. A nil or empty list is a no-op.
func (s *Server) LogOnServer(records []remotelog.Record) string {
	return s.logBatch(wire.Batch{Records: records})
}

// HandleBatch is a waPC host handler for protobuf encoded batches. The response
// is always an encoded status; the error is only set when that status cannot be
// encoded.
func (s *Server) HandleBatch(payload []byte) ([]byte, error) {
	b, err := wire.DecodeBatch(payload, wire.FormatProto)
	if err != nil {
		s.logger.Warn("Rejected undecodable log batch", zap.Error(err), zap.Int("bytes", len(payload)))
		return wire.EncodeStatus(&sdkproto.Status{Code: wire.StatusBadInput, Status: err.Error()})
	}
	return wire.EncodeResult(s.logBatch(b))
}

func (s *Server) logBatch(b wire.Batch) string {
	var first string
	for _, rec := range b.Records {
		if err := s.write(b.ID, rec); err != nil && first == "" {
			first = err.Error()
		}
	}
	return first
}

// write logs rec on the core directly so write failures surface per record.
func (s *Server) write(batchID string, rec remotelog.Record) error {
	lvl := logging.ZapLevel(rec.Level)
	core := s.logger.Core()
	if !core.Enabled(lvl) {
		return nil
	}

	name := s.override
	if name == "" {
		name = rec.Name()
	}
	if base := s.logger.Name(); base != "" {
		name = base + "." + name
	}

	ts := rec.Time
	if ts.IsZero() {
		ts = s.now()
	}

	fields := []zap.Field{zap.String("remote_level", rec.Level.String())}
	if batchID != "" {
		fields = append(fields, zap.String("batch_id", batchID))
	}
	if rec.Cause != nil {
		fields = append(fields, zap.Error(rec.Cause))
	}

	ent := zapcore.Entry{Level: lvl, Time: ts, LoggerName: name, Message: rec.Message}
	if err := core.Write(ent, fields); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
