package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesKeyValues(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", false, &buf)

	log.Info("message sent", "message_id", "m1", "error", errors.New("boom"), "count", 2)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "message sent", line["message"])
	assert.Equal(t, "m1", line["message_id"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, float64(2), line["count"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", false, &buf)

	log.Info("hidden")
	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_WithAndOddArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", false, &buf).With("component", "presence")

	log.Debug("dangling", "key")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "presence", line["component"])
	assert.Equal(t, "(MISSING)", line["key"])
}
