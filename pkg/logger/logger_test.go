package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLogLevel(" WARNING "))
	assert.Equal(t, ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithLevel(WarnLevel)
	l.SetOutput(&buf)

	l.Info("hidden %d", 1)
	l.Warn("shown %d", 2)
	l.Error("shown %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN: shown 2")
	assert.Contains(t, out, "ERROR: shown 3")
}

func TestNamedSharesSink(t *testing.T) {
	var buf bytes.Buffer
	root := NewLoggerWithLevel(DebugLevel)
	root.SetOutput(&buf)

	child := root.Named("store").Named("bolt")
	child.Debug("opened")
	root.SetLevel(ErrorLevel)
	child.Info("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[store.bolt] opened")
}
