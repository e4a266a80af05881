package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"bogus":   INFO,
		"":        INFO,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Output: &buf})

	logger.Info("hidden")
	logger.Warnf("shown %d", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "shown 1")
}

func TestWithPrefixSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Level: "info", Output: &buf, Prefix: "app"})
	child := parent.WithPrefix("engine")

	parent.SetLevel(ERROR)
	child.Info("dropped")
	child.Errorf("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "[app:engine]")
}

func TestColorDisabled(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "debug", Output: &buf}).Debug("plain")
	assert.False(t, strings.Contains(buf.String(), "\033["))
}

func TestLogFileReceivesUncoloredCopy(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger := New(Config{Level: "info", Output: &buf, EnableColor: true, LogFile: path})

	logger.Info("to both")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both")
	assert.NotContains(t, string(data), "\033[")
	assert.Contains(t, buf.String(), "\033[")
}

func TestFatalCallsExit(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	code := -1
	logger.core.exit = func(c int) { code = c }

	logger.Fatal("boom")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "FATAL")
}
