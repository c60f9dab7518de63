package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/loancheck/internal/config"
)

func TestParseLevel(t *testing.T) {
	testCases := map[string]Level{
		"trace":   LevelTrace,
		"DEBUG":   LevelDebug,
		"info":    LevelInfo,
		"":        LevelInfo,
		"warn":    LevelWarning,
		"Warning": LevelWarning,
		"error":   LevelError,
		"fatal":   LevelFatal,
	}
	for in, want := range testCases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", ErrorSampleRate: 1}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("evaluation complete", "eligible", true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "evaluation complete", entry["msg"])
	assert.Equal(t, true, entry["eligible"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "trace", Format: "text", ErrorSampleRate: 1}, &buf)
	require.NoError(t, err)

	log.Log(context.Background(), LevelTrace, "tracing")

	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "msg=tracing")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSampling_CountsEveryRecord(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", ErrorSampleRate: 1}, &buf)
	require.NoError(t, err)

	errorsBefore := TotalErrors.Load()
	warningsBefore := TotalWarnings.Load()

	log.Error("boom")
	log.Warn("careful")
	log.Warn("careful again")

	assert.Equal(t, int64(1), TotalErrors.Load()-errorsBefore)
	assert.Equal(t, int64(2), TotalWarnings.Load()-warningsBefore)
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))
}

func TestSampling_DropsMostRecords(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", ErrorSampleRate: 1_000_000_000}, &buf)
	require.NoError(t, err)

	before := TotalErrors.Load()
	for i := 0; i < 100; i++ {
		log.Error("boom")
	}
	log.Info("kept")

	assert.Equal(t, int64(100), TotalErrors.Load()-before)
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.Less(t, strings.Count(buf.String(), `"msg":"boom"`), 100)
}

func TestSamplingHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", ErrorSampleRate: 1}, &buf)
	require.NoError(t, err)

	log.With("evaluation_id", "abc").WithGroup("request").Info("received", "path", "/")

	assert.Contains(t, buf.String(), `"evaluation_id":"abc"`)
	assert.Contains(t, buf.String(), `"request":{"path":"/"}`)
}

func TestWarnSlowRequest_CountsOnlySlowRequests(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(config.LoggingConfig{Level: "info", Format: "json", ErrorSampleRate: 1}, &buf)
	require.NoError(t, err)

	slowBefore := SlowRequests.Load()
	warningsBefore := TotalWarnings.Load()

	WarnSlowRequest()
	log.Warn("slow request")

	assert.Equal(t, int64(1), SlowRequests.Load()-slowBefore)
	assert.Equal(t, int64(1), TotalWarnings.Load()-warningsBefore)
}

func TestShutdownWithoutOTEL(t *testing.T) {
	assert.NoError(t, Shutdown(context.Background()))
}
