package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ownmine/ownmine/internal/config"
	"github.com/ownmine/ownmine/internal/execmode"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"", LevelWarning},
		{"debug", LevelDebug},
		{"  Info ", LevelInfo},
		{"WARNING", LevelWarning},
		{"warn", LevelWarning},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"message", LevelMessage},
		{"verbose", LevelMessage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLevelSlogRoundTrip(t *testing.T) {
	for l := LevelDebug; l <= LevelFatal; l++ {
		assert.Equal(t, l, fromSlog(l.Slog()), l.String())
		if l > LevelDebug {
			assert.Greater(t, l.Slog(), (l - 1).Slog())
		}
	}
}

func TestLeveledFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Enabled: true, MinLevel: LevelDebug, Stream: &buf})

	l.Warning("rcon dial failed", "server", "survival", "err", "connection refused")
	l.Message("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[Warning\] rcon dial failed server=survival err="connection refused"$`), lines[0])
	assert.Regexp(t, regexp.MustCompile(`^\[[^\]]+\] plain$`), lines[1])
}

func TestSimpleFormat(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "out.log")
	l := New(Options{Enabled: true, MinLevel: LevelDebug, Stream: &buf, File: file})

	l.Print(LevelInfo, "survival;creative")

	assert.Equal(t, "survival;creative\n", buf.String())
	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err), "simple sink must not write the file")
}

func TestGating(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		level   Level
		written bool
	}{
		{name: "at minimum", opts: Options{Enabled: true, MinLevel: LevelWarning}, level: LevelWarning, written: true},
		{name: "below minimum", opts: Options{Enabled: true, MinLevel: LevelWarning}, level: LevelInfo},
		{name: "debug bypasses minimum", opts: Options{Enabled: true, MinLevel: LevelFatal, Mode: execmode.Debug}, level: LevelDebug, written: true},
		{name: "disabled", opts: Options{MinLevel: LevelDebug}, level: LevelFatal},
		{name: "debug wins over disabled", opts: Options{Mode: execmode.Debug}, level: LevelInfo, written: true},
		{name: "dry-run does not bypass", opts: Options{Enabled: true, MinLevel: LevelError, Mode: execmode.DryRun}, level: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Stream = &buf
			l := New(tt.opts)

			l.Log(tt.level, "leveled")
			l.Print(tt.level, "simple")

			if tt.written {
				assert.Contains(t, buf.String(), "leveled")
				assert.Contains(t, buf.String(), "simple")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestFileAppend(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "ownmine.log")
	require.NoError(t, os.WriteFile(file, []byte("existing\n"), 0644))

	l := New(Options{Enabled: true, MinLevel: LevelInfo, Stream: &buf, File: file})
	l.Info("first")
	l.Error("second")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "existing", lines[0])
	assert.Contains(t, lines[1], "[Info] first")
	assert.Contains(t, lines[2], "[Error] second")
}

func TestWithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(Options{Enabled: true, MinLevel: LevelDebug, Stream: &buf})
	logger := slogLogger(h.WithAttrs(nil).WithGroup("req").WithAttrs(nil))
	logger.Info("handled", "id", "abc")
	assert.Contains(t, buf.String(), "handled req.id=abc")
}

func TestDiscard(t *testing.T) {
	// Only checks that nothing panics; output goes nowhere.
	l := Discard()
	l.Fatal("gone")
	l.Print(LevelFatal, "gone")
}

func TestSet(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.New("", 0,
		config.Log{Enabled: true, Level: "info"},
		[]config.Server{
			{Name: "survival", Log: config.Log{Enabled: true, Path: filepath.Join(dir, "${SRV}"), File: "${SRV}.log", Level: "debug"}},
			{Name: "creative"},
		},
	)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "survival"), 0755))

	var buf bytes.Buffer
	set := NewSet(cfg, 0, &buf)

	set.Server("survival").Debug("booting")
	data, err := os.ReadFile(filepath.Join(dir, "survival", "survival.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[Debug] booting server=survival")

	// Logging is disabled for creative.
	buf.Reset()
	set.Server("creative").Error("dropped")
	assert.Empty(t, buf.String())

	// Unknown names fall back to the daemon logger.
	set.Server("lobby").Info("fallback")
	assert.Contains(t, buf.String(), "fallback server=lobby")

	buf.Reset()
	set.Daemon().Debug("below daemon level")
	assert.Empty(t, buf.String())
}

func TestFilePath(t *testing.T) {
	assert.Equal(t, "", filePath(config.Log{Path: "/var/log"}, "a"))
	assert.Equal(t, "/var/log/a/a.log", filePath(config.Log{Path: "/var/log/${SRV}", File: "${SRV}.log"}, "a"))
	assert.Equal(t, "/abs.log", filePath(config.Log{Path: "/var/log", File: "/abs.log"}, "a"))
	assert.Equal(t, "plain.log", filePath(config.Log{File: "plain.log"}, ""))
}

func slogLogger(h slog.Handler) *slog.Logger {
	return slog.New(h)
}
