package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")

	l.Warn("adapter failed",
		String("adapter", "yahoo:^VIX"),
		Int("attempt", 1),
		Float64("fallback", 2350.5),
		Bool("live", false),
		Duration("duration_ms", 1500*time.Millisecond),
		Strings("fields", []string{"vix", "move"}),
		Any("range", "5y"),
		Error(errors.New("upstream 503")),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	e := lines[0]
	assert.Equal(t, "warn", e["level"])
	assert.Equal(t, "adapter failed", e["message"])
	assert.Equal(t, "yahoo:^VIX", e["adapter"])
	assert.Equal(t, 1.0, e["attempt"])
	assert.Equal(t, 2350.5, e["fallback"])
	assert.Equal(t, false, e["live"])
	assert.Equal(t, 1500.0, e["duration_ms"])
	assert.Equal(t, "vix, move", e["fields"])
	assert.Equal(t, "5y", e["range"])
	assert.Equal(t, "upstream 503", e["error"])
}

func TestNewWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Error("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(String("indicator", "line"))
	l.Info("evaluated")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "line", lines[0]["indicator"])
}

func TestNew(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("to file")

	assert.NotPanics(t, func() { Nop().Error("dropped") })
}
