package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, cfg *LoggingConfig) (*CentralLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cl, err := NewCentralLoggerWithWriter(cfg, &buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })
	return cl, &buf
}

func TestModuleLevelFiltering(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		level     string
		logFunc   func(l Logger)
		wantEntry bool
	}{
		{"debug hidden at info", "info", func(l Logger) { l.Debug("msg") }, false},
		{"info shown at info", "info", func(l Logger) { l.Info("msg") }, true},
		{"warn hidden at error", "error", func(l Logger) { l.Warn("msg") }, false},
		{"trace shown at trace", "trace", func(l Logger) { l.Trace("msg") }, true},
		{"error always shown", "error", func(l Logger) { l.Error("msg") }, true},
		{"explicit level respected", "warn", func(l Logger) { l.Log(LogLevelInfo, "msg") }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cl, buf := newTestLogger(t, &LoggingConfig{
				DefaultLevel: tc.level,
				Console:      &ConsoleOutput{Enabled: true, Level: "trace"},
			})
			tc.logFunc(cl.Module("index"))
			assert.Equal(t, tc.wantEntry, strings.Contains(buf.String(), "msg=msg"), buf.String())
		})
	}
}

func TestModuleNameAndFields(t *testing.T) {
	t.Parallel()

	cl, buf := newTestLogger(t, &LoggingConfig{
		Console: &ConsoleOutput{Enabled: true, Format: "json", Level: "debug"},
	})

	log := cl.Module("anonymize").Module("mac").With(String("kind", "bssid"))
	log.Info("pseudonym generated", Int("count", 3), Bool("laa", true))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "anonymize.mac", entry["module"])
	assert.Equal(t, "bssid", entry["kind"])
	assert.InDelta(t, 3, entry["count"], 0)
	assert.Equal(t, true, entry["laa"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestPerModuleLevels(t *testing.T) {
	t.Parallel()

	cl, buf := newTestLogger(t, &LoggingConfig{
		DefaultLevel: "info",
		Console:      &ConsoleOutput{Enabled: true, Level: "debug"},
		ModuleLevels: map[string]string{"report": "debug"},
	})

	cl.Module("report").Debug("report detail")
	cl.Module("index").Debug("index detail")

	assert.Contains(t, buf.String(), "report detail")
	assert.NotContains(t, buf.String(), "index detail")
}

func TestRunIDFromContext(t *testing.T) {
	t.Parallel()

	cl, buf := newTestLogger(t, &LoggingConfig{})
	ctx := WithRunID(context.Background(), "run-42")

	cl.Module("cmd").WithContext(ctx).Info("started")
	assert.Contains(t, buf.String(), "run_id=run-42")

	same := cl.Module("cmd")
	assert.Equal(t, same, same.WithContext(context.Background()))
}

func TestRedactIdentifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"AA:BB:CC:DD:EE:FF", "[REDACTED]"},
		{"bssid aa-bb-cc-dd-ee-ff", "bssid [REDACTED]"},
		{"aabb.ccdd.eeff", "[REDACTED]"},
		{"serial CNABCD12X4 ok", "serial [REDACTED] ok"},
		{"Floor3-East", "Floor3-East"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactIdentifiers(tt.input), tt.input)
	}
}

func TestRedactionAppliedToFields(t *testing.T) {
	t.Parallel()

	cl, buf := newTestLogger(t, &LoggingConfig{RedactIdentifiers: true})
	cl.Module("anonymize").Info("mapped", String("source", "AA:BB:CC:DD:EE:FF"))

	assert.NotContains(t, buf.String(), "AA:BB:CC")
	assert.Contains(t, buf.String(), "[REDACTED]")
}

func TestFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "esxtool.log")
	cl, _ := newTestLogger(t, &LoggingConfig{
		Console:    &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{Enabled: true, Path: path},
	})

	cl.Module("archive").Info("written")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())
	assert.FileExists(t, path)
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}
