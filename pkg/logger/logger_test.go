package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"familyalbum/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

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

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "", zerolog.WarnLevel)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "familyalbum", lines[0]["app"])
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "", zerolog.DebugLevel)
	require.NoError(t, err)

	child := l.WithField("page", 3).WithError(errors.New("boom"))
	child.Info("child")
	l.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, float64(3), lines[0]["page"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.NotContains(t, lines[1], "page")
	assert.NotContains(t, lines[1], "error")
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	var console bytes.Buffer
	l, err := NewWithWriter(&console, path, zerolog.InfoLevel)
	require.NoError(t, err)

	l.InfoWithFields("saved", map[string]interface{}{"uuid": "abc", "took": time.Second})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"uuid":"abc"`)
	assert.Contains(t, console.String(), "saved")
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).Error("ignored")
	assert.NotNil(t, l.GetZerolog())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://example.test/f/x", 503, 20*time.Millisecond)
	LogRequest(tl, "GET", "https://example.test/f/x", 200, time.Millisecond)
	LogPage(tl, 2, 10, false)
	LogDownload(tl, "u-1", "/tmp/u-1.jpg", false, errors.New("disk full"))
	LogDownload(tl, "u-2", "/tmp/u-2.jpg", true, nil)

	errs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 2)
	assert.Equal(t, 503, errs[0].Fields["status_code"])
	assert.Equal(t, "disk full", errs[1].Error)
	assert.Equal(t, "u-1", errs[1].Fields["uuid"])
	assert.True(t, tl.HasMessage("Listing page fetched"))
	assert.True(t, tl.HasMessage("Download completed"))
}

func TestTestLoggerSharesSink(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("k", "v").Warn("from child")
	tl.Info("from parent")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "v", msgs[0].Fields["k"])
	assert.NotContains(t, msgs[1].Fields, "k")
	assert.False(t, tl.HasError())
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	t.Cleanup(func() { SetLogger(nil) })

	GetLogger().Info("via global")
	assert.True(t, tl.HasMessage("via global"))
}
