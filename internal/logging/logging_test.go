package logging

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogOperationSkipsZeroDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogOperation(logger, "network_built", slog.Int("stops", 4), slog.Duration("duration", 0))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "network_built", entry["msg"])
	assert.Equal(t, float64(4), entry["stops"])
	assert.NotContains(t, entry, "duration")

	LogOperation(logger, "network_built", slog.Duration("duration", time.Millisecond))
	assert.Contains(t, lastEntry(t, &buf), "duration")
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogError(logger, "graph build failed", errors.New("connection refused"), slog.Uint64("generation", 3))
	entry := lastEntry(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.Equal(t, float64(3), entry["generation"])
}

func TestNilLoggerIsIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		LogError(nil, "x", errors.New("y"))
		LogOperation(nil, "x")
		LogHTTPRequest(nil, "GET", "/", 200, 1)
	})
}

func TestOrDiscard(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)
	assert.Same(t, logger, OrDiscard(logger))

	quiet := OrDiscard(nil)
	require.NotNil(t, quiet)
	assert.NotPanics(t, func() { quiet.Warn("nats disconnected", "error", "eof") })
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelWarn)
	LogOperation(logger, "quiet")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

type fakeTx struct{ err error }

func (f fakeTx) Rollback() error { return f.err }

type fakeCloser struct{ err error }

func (f fakeCloser) Close() error { return f.err }

func TestSafeRollbackWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	SafeRollbackWithLogging(fakeTx{err: sql.ErrTxDone}, logger, "create_route")
	assert.Zero(t, buf.Len())

	SafeRollbackWithLogging(fakeTx{err: errors.New("conn busy")}, logger, "create_route")
	entry := lastEntry(t, &buf)
	assert.Equal(t, "create_route", entry["operation"])
	assert.Equal(t, "database", entry["component"])
}

func TestSafeCloseWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	SafeCloseWithLogging(fakeCloser{}, logger, "db")
	assert.Zero(t, buf.Len())

	SafeCloseWithLogging(fakeCloser{err: errors.New("already closed")}, logger, "db")
	assert.Equal(t, "already closed", lastEntry(t, &buf)["error"])
}
