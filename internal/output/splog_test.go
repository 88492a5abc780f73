package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplogConsole(t *testing.T) {
	t.Run("prints info and hides debug by default", func(t *testing.T) {
		t.Setenv("DEBUG", "")
		var buf bytes.Buffer
		splog := NewSplog(&buf, false)

		splog.Info("Backporting #%d", 1234)
		splog.Debug("state: Init -> Cloned")
		splog.Warn("careful")

		out := buf.String()
		require.Contains(t, out, "Backporting #1234\n")
		require.NotContains(t, out, "state:")
		require.Contains(t, out, "⚠️  careful")
	})

	t.Run("prints debug when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		splog := NewSplog(&buf, true)
		splog.Debug("state: %s -> %s", "Init", "Cloned")
		require.Equal(t, "state: Init -> Cloned\n", buf.String())
	})

	t.Run("page writes verbatim", func(t *testing.T) {
		var buf bytes.Buffer
		splog := NewSplog(&buf, false)
		splog.Page("    cd /tmp/ws\n")
		splog.Newline()
		require.Equal(t, "    cd /tmp/ws\n\n", buf.String())
	})
}

func TestSplogFile(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("BACKPORT_LOG_MAX_SIZE", "5")
	logPath := filepath.Join(t.TempDir(), "logs", "backport.log")

	var buf bytes.Buffer
	splog, err := NewSplogWithConfig(&buf, logPath, false)
	require.NoError(t, err)
	splog.Debug("git fetch origin abc123")
	splog.Info("Pushing backport-1")
	require.NoError(t, splog.Close())

	require.NotContains(t, buf.String(), "git fetch")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "git fetch origin abc123")
	require.Contains(t, string(data), "level=INFO")
}

func TestNewRotatingLogger(t *testing.T) {
	t.Setenv("BACKPORT_LOG_MAX_SIZE", "10")
	t.Setenv("BACKPORT_LOG_MAX_BACKUPS", "0")
	t.Setenv("BACKPORT_LOG_MAX_AGE", "bogus")

	logger := newRotatingLogger("/tmp/x.log")
	require.Equal(t, 10, logger.MaxSize)
	require.Equal(t, 0, logger.MaxBackups)
	require.Equal(t, 30, logger.MaxAge)
}

func TestDefaultLogFilePath(t *testing.T) {
	t.Setenv("BACKPORT_LOG_FILE", "/var/log/bp.log")
	require.Equal(t, "/var/log/bp.log", DefaultLogFilePath())
}

func TestConfigureColorPlainWhenNotTerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	require.False(t, ColorEnabled(f))
	ConfigureColor(f)
	require.Equal(t, "#42", ColorPRNumber(42))
	require.Equal(t, "main", ColorBranch("main"))
}

func TestColorDisabledByNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	require.False(t, ColorEnabled(os.Stderr))
}
