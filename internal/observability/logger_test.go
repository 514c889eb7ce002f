package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_ConsoleFormats(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := newLogger(&buf, LogOptions{Level: "info", Format: "json"})
	defer cleanup() //nolint:errcheck // no file opened

	logger.Debug("hidden")
	logger.Info("assessment computed", "severity", "Degraded")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "assessment computed", rec["msg"])
	assert.Equal(t, "Degraded", rec["severity"])

	buf.Reset()
	logger, _ = newLogger(&buf, LogOptions{Level: "info", Format: "text"})
	logger.Info("hello")
	assert.True(t, strings.Contains(buf.String(), "msg=hello"), buf.String())
}

func TestNewLogger_FansOutToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soilsense.log")
	var console bytes.Buffer

	logger, cleanup := newLogger(&console, LogOptions{Level: "debug", Format: "text", File: path})
	logger.Warn("imagery unavailable", "error", "timeout")
	require.NoError(t, cleanup())

	assert.Contains(t, console.String(), "imagery unavailable")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "timeout", rec["error"])
}

func TestNewLogger_UnwritableFileFallsBack(t *testing.T) {
	var console bytes.Buffer
	logger, cleanup := newLogger(&console, LogOptions{File: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	require.NoError(t, cleanup())

	logger.Info("still logging")
	assert.Contains(t, console.String(), "failed to open log file")
	assert.Contains(t, console.String(), "still logging")
}
