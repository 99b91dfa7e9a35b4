package logger

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

func newBuffered(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg.writer = out
	l, err := New(&cfg)
	require.NoError(t, err)
	return l, out
}

// entries decodes one JSON object per line
func entries(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var result []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		result = append(result, entry)
	}
	return result
}

func TestNew_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "info", want: []string{"INFO", "WARN", "ERROR"}},
		{level: "warning", want: []string{"WARN", "ERROR"}},
		{level: "error", want: []string{"ERROR"}},
		{level: "verbose", want: []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, out := newBuffered(t, Config{Level: tt.level, Format: "json"})

			l.Debug("claim")
			l.Info("claim")
			l.Warn("claim")
			l.Error("claim")

			var levels []string
			for _, e := range entries(t, out) {
				levels = append(levels, e["level"].(string))
			}
			assert.Equal(t, tt.want, levels)
		})
	}
}

func TestNew_Formats(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		l, out := newBuffered(t, Config{Format: "json", Service: "career-worker-service"})
		l.Info("Task claimed successfully", slog.String("task_id", "import:u1:golang"), slog.Int("retry_count", 1))

		got := entries(t, out)
		require.Len(t, got, 1)
		assert.Equal(t, "Task claimed successfully", got[0]["msg"])
		assert.Equal(t, "import:u1:golang", got[0]["task_id"])
		assert.Equal(t, float64(1), got[0]["retry_count"])
		assert.Equal(t, "career-worker-service", got[0]["service"])
		assert.Contains(t, got[0], "time")
	})

	t.Run("unknown format falls back to json", func(t *testing.T) {
		l, out := newBuffered(t, Config{Format: "xml"})
		l.Info("started")
		assert.Len(t, entries(t, out), 1)
	})

	t.Run("console", func(t *testing.T) {
		l, out := newBuffered(t, Config{Format: "console", EnableSource: true})
		l.Info("HTTP request", slog.Int("status", 202))

		line := out.String()
		assert.Contains(t, line, "HTTP request")
		assert.Contains(t, line, "status")
		assert.Contains(t, line, "202")
		assert.Contains(t, line, "logger_test.go")
	})
}

func TestNew_RedactsSecrets(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			l, out := newBuffered(t, Config{Format: format})

			l.Info("login",
				slog.String("password", "hunter22"),
				slog.String("Authorization", "Bearer abc.def"),
				slog.Group("llm", slog.String("api_key", "AIza-secret")),
				slog.String("user_id", "u-1"),
			)

			line := out.String()
			assert.NotContains(t, line, "hunter22")
			assert.NotContains(t, line, "abc.def")
			assert.NotContains(t, line, "AIza-secret")
			assert.Contains(t, line, redacted)
			assert.Contains(t, line, "u-1")
		})
	}
}

func TestLogger_Derived(t *testing.T) {
	l, out := newBuffered(t, Config{Format: "json"})

	l.With("worker_id", "w-1").
		WithAttrs(slog.String("task_id", "analysis:u1:matching:50")).
		WithGroup("progress").
		Info("Task progress", slog.Int("processed", 3), slog.Int("total", 10))

	got := entries(t, out)
	require.Len(t, got, 1)
	assert.Equal(t, "w-1", got[0]["worker_id"])
	assert.Equal(t, "analysis:u1:matching:50", got[0]["task_id"])
	assert.Equal(t, map[string]any{"processed": float64(3), "total": float64(10)}, got[0]["progress"])
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("task finished", slog.String("task_id", "import:u1:golang"))
	require.NoError(t, l.Close())

	// a second logger appends to the same file
	l, err = New(&Config{Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("task claimed")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := entries(t, bytes.NewBuffer(data))
	require.Len(t, got, 2)
	assert.Equal(t, "task finished", got[0]["msg"])
	assert.Equal(t, "import:u1:golang", got[0]["task_id"])
	assert.Equal(t, "task claimed", got[1]["msg"])
}

func TestNew_FileOutputUnwritable(t *testing.T) {
	l, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	require.Error(t, err)
	assert.Nil(t, l)
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	l, _ := newBuffered(t, Config{Format: "json"})
	assert.NoError(t, l.Close())
	assert.NoError(t, NewDefault().Close())
}
