package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkproto "github.com/tarmac-project/protobuf-go/sdk"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/protobuf/proto"

	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/batch"
	"github.com/tarmac-project/remotelog/batch/batchtest"
	"github.com/tarmac-project/remotelog/transport"
	"github.com/tarmac-project/remotelog/wire"
)

var (
	fixedTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	errSink   = errors.New("sink unavailable")
)

// failingCore fails writes for one message.
type failingCore struct {
	zapcore.Core
	message string
}

func (c failingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if ent.Message == c.message {
		return errSink
	}
	return c.Core.Write(ent, fields)
}

func newServer(t *testing.T, cfg Config) (*Server, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	if cfg.Logger == nil {
		cfg.Logger = zap.New(core)
	}
	cfg.Now = func() time.Time { return fixedTime }

	s, err := New(cfg)
	require.NoError(t, err)
	return s, logs
}

func testBatch() wire.Batch {
	return wire.Batch{
		ID: "batch-1",
		Records: []remotelog.Record{
			{Time: fixedTime, Level: remotelog.LevelInfo, Category: "app", Message: "started"},
			{Time: fixedTime, Level: remotelog.LevelError, Category: "db", Message: "query failed", Cause: errors.New("timeout")},
		},
	}
}

func decodeStatus(t *testing.T, payload []byte) *sdkproto.Status {
	t.Helper()

	var st sdkproto.Status
	require.NoError(t, proto.Unmarshal(payload, &st))
	return &st
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := New(Config{MaxBodyBytes: -1})
	require.ErrorIs(t, err, ErrInvalidBodyLimit)

	s, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxBodyBytes, s.maxBody)
	assert.NotNil(t, s.logger)
	assert.Equal(t, "", s.LogOnServer([]remotelog.Record{{Level: remotelog.LevelError, Message: "discarded"}}))
}

func TestLogOnServer(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()

		s, logs := newServer(t, Config{})
		assert.Equal(t, "", s.LogOnServer(nil))
		assert.Equal(t, "", s.LogOnServer([]remotelog.Record{}))
		assert.Zero(t, logs.Len())
	})

	t.Run("records keep category level and time", func(t *testing.T) {
		t.Parallel()

		s, logs := newServer(t, Config{})
		recs := append(testBatch().Records, remotelog.Record{Level: remotelog.LevelTrace, Message: "fine grained"})
		require.Equal(t, "", s.LogOnServer(recs))

		entries := logs.All()
		require.Len(t, entries, 3)

		assert.Equal(t, "app", entries[0].LoggerName)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.True(t, entries[0].Time.Equal(fixedTime))
		assert.NotContains(t, entries[0].ContextMap(), "batch_id")

		assert.Equal(t, "db", entries[1].LoggerName)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "timeout", entries[1].ContextMap()["error"])

		assert.Equal(t, remotelog.DefaultCategory, entries[2].LoggerName)
		assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
		assert.Equal(t, "TRACE", entries[2].ContextMap()["remote_level"])
		assert.True(t, entries[2].Time.Equal(fixedTime))
	})

	t.Run("name override and parent logger", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.DebugLevel)
		s, _ := newServer(t, Config{Logger: zap.New(core).Named("sink"), LoggerNameOverride: "client"})
		require.Equal(t, "", s.LogOnServer(testBatch().Records))

		for _, e := range logs.All() {
			assert.Equal(t, "sink.client", e.LoggerName)
		}
	})

	t.Run("disabled levels are skipped", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.WarnLevel)
		s, _ := newServer(t, Config{Logger: zap.New(core)})
		require.Equal(t, "", s.LogOnServer(testBatch().Records))
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "query failed", logs.All()[0].Message)
	})

	t.Run("first failure is returned", func(t *testing.T) {
		t.Parallel()

		core, logs := observer.New(zapcore.DebugLevel)
		s, _ := newServer(t, Config{Logger: zap.New(failingCore{Core: core, message: "started"})})

		recs := append(testBatch().Records, remotelog.Record{Level: remotelog.LevelInfo, Category: "late", Message: "started"})
		msg := s.LogOnServer(recs)
		assert.Equal(t, "app: sink unavailable", msg)
		assert.Equal(t, 1, logs.Len())
	})
}

func TestHandleBatch(t *testing.T) {
	t.Parallel()

	t.Run("acknowledged", func(t *testing.T) {
		t.Parallel()

		s, logs := newServer(t, Config{})
		payload, err := wire.EncodeBatch(testBatch(), wire.FormatProto)
		require.NoError(t, err)

		resp, err := s.HandleBatch(payload)
		require.NoError(t, err)

		msg, err := wire.DecodeResult(resp)
		require.NoError(t, err)
		assert.Equal(t, "", msg)

		require.Equal(t, 2, logs.Len())
		assert.Equal(t, "batch-1", logs.All()[0].ContextMap()["batch_id"])
	})

	t.Run("record failure is partial", func(t *testing.T) {
		t.Parallel()

		core, _ := observer.New(zapcore.DebugLevel)
		s, _ := newServer(t, Config{Logger: zap.New(failingCore{Core: core, message: "query failed"})})
		payload, err := wire.EncodeBatch(testBatch(), wire.FormatProto)
		require.NoError(t, err)

		resp, err := s.HandleBatch(payload)
		require.NoError(t, err)
		assert.True(t, proto.Equal(&sdkproto.Status{Code: wire.StatusPartial, Status: "db: sink unavailable"}, decodeStatus(t, resp)))
	})

	t.Run("undecodable payload", func(t *testing.T) {
		t.Parallel()

		s, logs := newServer(t, Config{})
		resp, err := s.HandleBatch([]byte{0xff, 0xff, 0xff})
		require.NoError(t, err)
		assert.Equal(t, wire.StatusBadInput, decodeStatus(t, resp).GetCode())
		assert.Equal(t, 1, logs.FilterMessage("Rejected undecodable log batch").Len())

		_, err = wire.DecodeResult(resp)
		assert.ErrorIs(t, err, remotelog.ErrHostError)
	})
}

func TestHTTPHandler(t *testing.T) {
	t.Parallel()

	protoBody, err := wire.EncodeBatch(testBatch(), wire.FormatProto)
	require.NoError(t, err)
	jsonBody, err := wire.EncodeBatch(testBatch(), wire.FormatJSON)
	require.NoError(t, err)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err = gw.Write(protoBody)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zstdBody := enc.EncodeAll(protoBody, nil)
	require.NoError(t, enc.Close())

	tt := []struct {
		name        string
		method      string
		body        []byte
		contentType string
		encoding    string
		maxBody     int64
		wantHTTP    int
		wantCode    int32
		wantLogged  int
	}{
		{name: "protobuf", method: http.MethodPost, body: protoBody, wantHTTP: http.StatusOK, wantCode: wire.StatusOK, wantLogged: 2},
		{name: "json", method: http.MethodPost, body: jsonBody, contentType: "application/json", wantHTTP: http.StatusOK, wantCode: wire.StatusOK, wantLogged: 2},
		{name: "gzip", method: http.MethodPost, body: gz.Bytes(), encoding: "gzip", wantHTTP: http.StatusOK, wantCode: wire.StatusOK, wantLogged: 2},
		{name: "zstd", method: http.MethodPost, body: zstdBody, encoding: "zstd", wantHTTP: http.StatusOK, wantCode: wire.StatusOK, wantLogged: 2},
		{name: "unsupported encoding", method: http.MethodPost, body: protoBody, encoding: "br", wantHTTP: http.StatusUnsupportedMediaType, wantCode: wire.StatusBadInput},
		{name: "too large", method: http.MethodPost, body: protoBody, maxBody: 8, wantHTTP: http.StatusRequestEntityTooLarge, wantCode: wire.StatusBadInput},
		{name: "malformed", method: http.MethodPost, body: []byte("{not json"), contentType: "application/json", wantHTTP: http.StatusBadRequest, wantCode: wire.StatusBadInput},
		{name: "wrong method", method: http.MethodGet, wantHTTP: http.StatusMethodNotAllowed},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			s, _ := newServer(t, Config{Logger: zap.New(core), MaxBodyBytes: tc.maxBody})

			req := httptest.NewRequest(tc.method, "/v1/logs", bytes.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			if tc.encoding != "" {
				req.Header.Set("Content-Encoding", tc.encoding)
			}
			rec := httptest.NewRecorder()

			s.HTTPHandler().ServeHTTP(rec, req)

			require.Equal(t, tc.wantHTTP, rec.Code)
			if tc.wantHTTP == http.StatusMethodNotAllowed {
				assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
				return
			}
			assert.Equal(t, "application/x-protobuf", rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.wantCode, decodeStatus(t, rec.Body.Bytes()).GetCode())
			assert.Equal(t, tc.wantLogged, logs.FilterField(zap.String("batch_id", "batch-1")).Len())
		})
	}
}

func TestDispatcherToServer(t *testing.T) {
	t.Parallel()

	s, logs := newServer(t, Config{})

	tr, err := transport.NewHost(transport.HostConfig{
		HostCall: func(namespace, capability, function string, payload []byte) ([]byte, error) {
			assert.Equal(t, transport.CapabilityName, capability)
			assert.Equal(t, transport.FnBatch, function)
			return s.HandleBatch(payload)
		},
	})
	require.NoError(t, err)

	sched := batchtest.NewManualScheduler()
	d, err := batch.New(batch.Config{
		MinLevel:   batch.PresetInfo,
		Transport:  tr,
		Scheduler:  sched,
		NewBatchID: func() string { return "batch-e2e" },
	})
	require.NoError(t, err)

	d.Publish(remotelog.NewRecord(remotelog.LevelDebug, "app", "hidden", nil))
	d.Publish(remotelog.NewRecord(remotelog.LevelInfo, "app", "one", nil))
	d.Publish(remotelog.NewRecord(remotelog.LevelWarn, "db", "two", errors.New("slow")))
	require.Equal(t, 1, sched.FireAll(10))

	require.Equal(t, batch.StateIdle, d.State())
	require.NoError(t, d.Err())

	entries := logs.FilterField(zap.String("batch_id", "batch-e2e")).All()
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Message)
	assert.Equal(t, "db", entries[1].LoggerName)
	assert.Equal(t, "slow", entries[1].ContextMap()["error"])
}
