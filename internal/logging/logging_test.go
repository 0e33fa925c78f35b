package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestSetup_WriterAndLevel(t *testing.T) {
	restoreDefault(t)

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()

	slog.Info("hidden")
	slog.Warn("shown", slog.Int("index", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "index=3")
}

func TestSetup_File(t *testing.T) {
	restoreDefault(t)

	path := filepath.Join(t.TempDir(), "logs", "flowdoc.log")
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.FilePath = path

	cleanup, err := Setup(cfg)
	require.NoError(t, err)

	slog.Debug("to file")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"to file\"")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"bogus", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("Debug"))
	assert.True(t, ValidLevel("warning"))
	assert.False(t, ValidLevel(""))
	assert.False(t, ValidLevel("trace"))
}
