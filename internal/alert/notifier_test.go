package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoOpNotifier(t *testing.T) {
	n := NewNoOpNotifier()
	assert.NoError(t, n.Send("ignored"))
	assert.NoError(t, n.Close())
}

func TestLogNotifier_Buffering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewLogNotifier(zap.New(core), 50*time.Millisecond)

	require.NoError(t, n.Send("message 1"))
	require.NoError(t, n.Send("message 2"))
	assert.Equal(t, 0, logs.Len(), "messages are not emitted immediately")

	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 10*time.Millisecond)
	entry := logs.All()[0]
	assert.Equal(t, "--- Alert Report ---", entry.Message)
	assert.Contains(t, entry.ContextMap()["messages"], "message 1")
	assert.Contains(t, entry.ContextMap()["messages"], "message 2")

	require.NoError(t, n.Close())
}

func TestLogNotifier_CloseSendsRemaining(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewLogNotifier(zap.New(core), time.Hour)

	require.NoError(t, n.Send("final message"))
	require.NoError(t, n.Close())

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["messages"], "final message")

	err := n.Send("should fail")
	assert.EqualError(t, err, "notifier is closed")
	assert.NoError(t, n.Close())
}
