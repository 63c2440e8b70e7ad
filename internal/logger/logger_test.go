package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func useObserver(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := log
	log = zap.New(core)
	t.Cleanup(func() { log = prev })
	return logs
}

func TestInitialize_WithoutSentry(t *testing.T) {
	prev := log
	t.Cleanup(func() { log = prev })

	require.NoError(t, Initialize(Config{Debug: true}))
	assert.NotNil(t, Default())
	Flush(0)
}

func TestWithFields_CarriesFieldsThroughContext(t *testing.T) {
	logs := useObserver(t)

	ctx := WithFields(context.Background(), zap.String("request_id", "abc"))
	InfoCtx(ctx, "handled")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "handled", entries[0].Message)
	assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
}

func TestErrorCtx_UsesErrorAsMessage(t *testing.T) {
	logs := useObserver(t)

	ErrorCtx(context.Background(), errors.New("boom"), zap.Uint64("batch_id", 7))
	Error(nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "boom", entries[0].Message)
	assert.Equal(t, uint64(7), entries[0].ContextMap()["batch_id"])
	assert.Equal(t, "error occurred", entries[1].Message)
}
