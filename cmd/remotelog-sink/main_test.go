package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	remotelog "github.com/tarmac-project/remotelog"
	"github.com/tarmac-project/remotelog/wire"
)

func testPayload(t *testing.T, format wire.Format) []byte {
	t.Helper()

	b := wire.Batch{
		ID: "batch-1",
		Records: []remotelog.Record{
			{Time: time.Unix(1700000000, 0), Level: remotelog.LevelInfo, Category: "app", Message: "started"},
			{Time: time.Unix(1700000001, 0), Level: remotelog.LevelWarn, Category: "db", Message: "slow query"},
		},
	}
	payload, err := wire.EncodeBatch(b, format)
	require.NoError(t, err)
	return payload
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "/v1/logs", cfg.Path)
	assert.Equal(t, remotelog.LevelInfo, cfg.Level)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Development)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9090\"\nlevel: debug\nread_timeout: 3s\nlogger_name: file\n"), 0o600))
	t.Setenv("REMOTELOG_LEVEL", "warn")

	a := newApp(&bytes.Buffer{})
	root := newRootCmd(a)
	require.NoError(t, root.PersistentFlags().Set("logger-name", "flag"))

	a.v.SetConfigFile(path)
	require.NoError(t, a.v.ReadInConfig())

	cfg, err := loadConfig(a.v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, remotelog.LevelWarn, cfg.Level)
	assert.Equal(t, 3*time.Second, cfg.ReadTimeout)
	assert.Equal(t, "flag", cfg.LoggerName)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name  string
		key   string
		value any
	}{
		{"unknown level", "level", "loud"},
		{"bad duration", "read_timeout", "soon"},
		{"relative path", "path", "v1/logs"},
		{"negative timeout", "shutdown_timeout", "-1s"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v := newViper()
			v.Set(tc.key, tc.value)
			_, err := loadConfig(v)
			require.Error(t, err)
		})
	}
}

func TestDecodeCommand(t *testing.T) {
	t.Parallel()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(testPayload(t, wire.FormatProto))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	file := filepath.Join(t.TempDir(), "batch.pb.gz")
	require.NoError(t, os.WriteFile(file, gz.Bytes(), 0o600))

	tt := []struct {
		name     string
		args     []string
		stdin    []byte
		wantName string
	}{
		{name: "gzip file", args: []string{"decode", file, "--encoding", "gzip"}, wantName: "app"},
		{name: "json stdin", args: []string{"decode", "--format", "json", "--logger-name", "client"}, stdin: testPayload(t, wire.FormatJSON), wantName: "client"},
		{name: "dash reads stdin", args: []string{"decode", "-"}, stdin: testPayload(t, wire.FormatProto), wantName: "app"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			var out bytes.Buffer
			a := newApp(&out)
			a.logger = zap.New(core)

			root := newRootCmd(a)
			root.SetArgs(tc.args)
			root.SetIn(bytes.NewReader(tc.stdin))
			require.NoError(t, root.Execute())

			assert.Equal(t, "batch batch-1: 2 records\n", out.String())
			require.Equal(t, 2, logs.Len())
			assert.Equal(t, tc.wantName, logs.All()[0].LoggerName)
			assert.Equal(t, "slow query", logs.All()[1].Message)
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	t.Parallel()

	tt := []struct {
		name  string
		args  []string
		stdin []byte
	}{
		{"unknown format", []string{"decode", "--format", "xml"}, nil},
		{"undecodable payload", []string{"decode", "--format", "json"}, []byte("{broken")},
		{"unsupported encoding", []string{"decode", "--encoding", "br"}, testPayload(t, wire.FormatProto)},
		{"missing file", []string{"decode", filepath.Join(t.TempDir(), "absent")}, nil},
		{"too many args", []string{"decode", "a", "b"}, nil},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := newApp(&bytes.Buffer{})
			a.logger = zap.NewNop()

			root := newRootCmd(a)
			root.SetArgs(tc.args)
			root.SetIn(bytes.NewReader(tc.stdin))
			root.SetErr(&bytes.Buffer{})
			require.Error(t, root.Execute())
		})
	}
}

func TestHTTPServer(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(newViper())
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	hs, err := newHTTPServer(cfg, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, ":8080", hs.Addr)
	assert.Equal(t, 10*time.Second, hs.ReadTimeout)

	rec := httptest.NewRecorder()
	hs.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/logs", bytes.NewReader(testPayload(t, wire.FormatProto))))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, logs.Len())

	rec = httptest.NewRecorder()
	hs.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/elsewhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(newViper())
	require.NoError(t, err)
	cfg.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, serve(ctx, cfg, zap.NewNop()))
}
