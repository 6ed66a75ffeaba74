package logx

import (
	"bytes"
	"context"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: charmlog.InfoLevel, Output: &buf})
	l.Info("hello", "key", "value")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "value")
}

func TestNewLoggerRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: charmlog.ErrorLevel, Output: &buf})
	l.Info("should be filtered")
	assert.Empty(t, buf.String())

	l.Error("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWithAttachesKeyvalsToSubsequentLogs(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: charmlog.InfoLevel, Output: &buf})
	scoped := l.With("component", "parser")
	scoped.Info("parsed")
	assert.Contains(t, buf.String(), "component")
	assert.Contains(t, buf.String(), "parser")
}

func TestContextWithLoggerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Config{Level: charmlog.InfoLevel, Output: &buf})
	ctx := ContextWithLogger(context.Background(), l)

	got := FromContext(ctx)
	require.NotNil(t, got)
	got.Info("via context")
	assert.Contains(t, buf.String(), "via context")
}

func TestFromContextFallsBackToDefaultLogger(t *testing.T) {
	got := FromContext(context.Background())
	assert.NotNil(t, got)

	got = FromContext(nil)
	assert.NotNil(t, got)
}

func TestTestConfigIsQuiet(t *testing.T) {
	cfg := TestConfig()
	assert.Equal(t, charmlog.ErrorLevel, cfg.Level)
	assert.NotNil(t, cfg.Output)
}
