package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New("info", "text", &buf), "archive")

	logger.Info("wrote snapshot", "path", "a01.json")

	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "component=archive")
	assert.Contains(t, out, "path=a01.json")
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New("info", "json", &buf), "compare")

	logger.Info("done")

	out := buf.String()
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"component":"compare"`)
}

func TestNew_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "text", &buf)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger = New("debug", "text", &buf)
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestComponent_NilLogger(t *testing.T) {
	logger := Component(nil, "x")
	assert.NotNil(t, logger)
	logger.Error("nothing happens")
}
