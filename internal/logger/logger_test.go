package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"none", LevelNone},
		{"NONE", LevelNone},
		{" off ", LevelNone},
		{"invalid", LevelInfo}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLevel(tt.input); result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelNone, "NONE"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.level.String(); result != tt.expected {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, result, tt.expected)
			}
		})
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")

	l, err := New(LevelInfo, logPath, "test")
	require.NoError(t, err)

	l.Info("test message %d", 1)
	l.Debug("should not appear")
	require.NoError(t, l.Close())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	out := string(content)
	assert.Contains(t, out, "test message 1")
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, `"logger":"test"`)
}

func TestLoggerWithPrefix(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core, LevelDebug).WithPrefix("parent")
	child := l.WithPrefix("child")

	child.Info("hello")

	assert.Equal(t, "parent:child", child.Prefix())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "parent.child", logs.All()[0].LoggerName)
}

func TestLoggerWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core, LevelDebug).WithFields("run_id", "r-1")

	l.Warn("tool %s failed", "search_events")

	entries := logs.FilterField(zapcore.Field{Key: "run_id", Type: zapcore.StringType, String: "r-1"}).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tool search_events failed", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestSetLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core, LevelInfo)

	l.Info("info1")
	l.Debug("debug1")

	l.SetLevel(LevelDebug)
	l.Info("info2")
	l.Debug("debug2")

	var messages []string
	for _, e := range logs.All() {
		messages = append(messages, e.Message)
	}
	joined := strings.Join(messages, ",")
	assert.Equal(t, "info1,info2,debug2", joined)
	assert.Equal(t, LevelDebug, l.GetLevel())
}

func TestLoggerDisabled(t *testing.T) {
	l, err := New(LevelNone, "", "test")
	require.NoError(t, err)
	defer l.Close()

	// These should not panic or error
	l.Debug("debug")
	l.Info("info")
	l.Warn("warn")
	l.Error("error")
}

func TestGlobalLogger(t *testing.T) {
	require.NotNil(t, Global())

	core, logs := observer.New(zapcore.DebugLevel)
	prev := Global()
	SetGlobal(NewFromCore(core, LevelWarn))
	t.Cleanup(func() { SetGlobal(prev) })

	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error")

	assert.Equal(t, 2, logs.Len())
}
