package locklog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

func TestObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := rwlock.New(rwlock.WithObserver(New(zap.New(core), "test")))
	c := rwlock.NewCaller()

	require.NoError(t, l.LockWrite(context.Background(), c))
	require.NoError(t, l.UnlockWrite(c))
	require.Error(t, l.UnlockWrite(c))

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	require.Equal(t, "granted", entries[0].Message)
	require.Equal(t, "write", entries[0].ContextMap()["mode"])
	require.Equal(t, c.String(), entries[0].ContextMap()["caller"])
	require.Equal(t, false, entries[0].ContextMap()["waited"])
	require.Equal(t, "test", entries[0].ContextMap()["lock"])

	require.Equal(t, "released", entries[1].Message)

	require.Equal(t, "protocol violation", entries[2].Message)
	require.Equal(t, zapcore.WarnLevel, entries[2].Level)
}

func TestObserver_LevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := rwlock.New(rwlock.WithObserver(New(zap.New(core), "quiet")))
	c := rwlock.NewCaller()

	require.NoError(t, l.LockRead(context.Background(), c))
	require.NoError(t, l.UnlockRead(c))
	require.Error(t, l.UnlockRead(c))

	require.Equal(t, 1, logs.FilterMessage("protocol violation").Len())
	require.Equal(t, 1, logs.Len())
}

func TestNew_NilLogger(t *testing.T) {
	o := New(nil, "nop")
	o.Violation(rwlock.ErrProtocolViolation)
}
