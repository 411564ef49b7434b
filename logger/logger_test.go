package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetRoutesBothLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	L().Info("store.persisted", zap.Int("rows", 3))
	S().Warnw("reconcile.stale_quote", "identifier", "INE002A01018")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "store.persisted", entries[0].Message)
		assert.Equal(t, int64(3), entries[0].ContextMap()["rows"])
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	}
}

func TestInitLevel(t *testing.T) {
	Init("test", "prod", "error")
	t.Cleanup(func() { Set(zap.NewNop()) })

	assert.False(t, L().Core().Enabled(zapcore.WarnLevel))
	assert.True(t, L().Core().Enabled(zapcore.ErrorLevel))
}
