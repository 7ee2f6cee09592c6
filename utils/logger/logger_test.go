package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })

	assert.NoError(t, Init("production", "warn"))
	assert.False(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Get().Core().Enabled(zapcore.WarnLevel))

	assert.NoError(t, Init("development", ""))
	assert.True(t, Get().Core().Enabled(zapcore.DebugLevel))

	assert.Error(t, Init("development", "loud"))
}

func TestGet_NotInitialized(t *testing.T) {
	globalLogger = nil
	t.Cleanup(func() { globalLogger = nil })

	assert.NotNil(t, Get())
	Info("discarded")
}

func TestSet(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })

	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	Warn("routed", zap.String("k", "v"))
	assert.Equal(t, 1, logs.FilterMessage("routed").Len())

	Set(nil)
	assert.NotNil(t, Get())
}
