package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"Error", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_DiscardsUntilConfigured(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)

	l.Debug("hidden %d", 1)
	l.Info("analysis %s", "started")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[INFO] analysis started")
}

func TestLogger_ConfigureWritesFileAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agriwizard.log")
	var buf bytes.Buffer
	l := newLogger(&buf)
	t.Cleanup(func() { _ = l.Close() })

	require.NoError(t, l.Configure("warn", path))
	l.Info("quiet message")
	l.Warn("backend slow")
	l.Error("backend down")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "quiet message")
	assert.Contains(t, string(content), "[WARN] backend slow")
	assert.Contains(t, string(content), "[ERROR] backend down")
	assert.Empty(t, buf.String(), "output moved to the file")
}

func TestLogger_ConfigureAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agriwizard.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier run\n"), 0644))

	l := newLogger(&bytes.Buffer{})
	require.NoError(t, l.Configure("", path))
	l.Info("this run")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "earlier run\n")
	assert.Contains(t, string(content), "[INFO] this run")
}

func TestLogger_ConfigureInvalidLevelChangesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agriwizard.log")
	l := newLogger(&bytes.Buffer{})

	assert.Error(t, l.Configure("verbose", path))
	assert.Equal(t, LevelInfo, l.level)
	assert.NoFileExists(t, path)
}

func TestLogger_ConfigureBadPath(t *testing.T) {
	l := newLogger(&bytes.Buffer{})
	err := l.Configure("debug", filepath.Join(t.TempDir(), "missing", "agriwizard.log"))
	assert.ErrorContains(t, err, "opening log file")
}

func TestLogger_CloseStopsWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agriwizard.log")
	l := newLogger(&bytes.Buffer{})
	require.NoError(t, l.Configure("info", path))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "closing twice is fine")
	l.Error("after close")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "after close")
}

func TestConfigure_ProcessLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agriwizard.log")
	saved := std
	std = newLogger(&bytes.Buffer{})
	t.Cleanup(func() {
		_ = Close()
		std = saved
	})

	require.NoError(t, Configure("debug", path))
	Debug("debug %s", "line")
	Info("info %s", "line")
	Warn("warn %s", "line")
	Error("error %s", "line")
	require.NoError(t, Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, want := range []string{"[DEBUG] debug line", "[INFO] info line", "[WARN] warn line", "[ERROR] error line"} {
		assert.Contains(t, string(content), want)
	}
}
