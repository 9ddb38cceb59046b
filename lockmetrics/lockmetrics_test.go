package lockmetrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

func TestCollector(t *testing.T) {
	m := New("test")
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(m))

	l := rwlock.New(rwlock.WithObserver(m))
	ctx := context.Background()
	w, r := rwlock.NewCaller(), rwlock.NewCaller()

	require.NoError(t, l.LockWrite(ctx, w))

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.LockRead(tctx, r), rwlock.ErrCancelled)

	done := make(chan error, 1)
	go func() { done <- l.LockRead(ctx, r) }()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.waiters.WithLabelValues("read")) == 1
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, l.UnlockWrite(w))
	require.NoError(t, <-done)
	require.NoError(t, l.UnlockRead(r))
	require.Error(t, l.UnlockRead(r))

	require.Equal(t, 1.0, testutil.ToFloat64(m.acquisitions.WithLabelValues("write", "false")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.acquisitions.WithLabelValues("read", "true")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.cancellations.WithLabelValues("read")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.violations))
	require.Equal(t, 0.0, testutil.ToFloat64(m.waiters.WithLabelValues("read")))

	expected := `
# HELP rwlock_releases_total Released lock acquisitions.
# TYPE rwlock_releases_total counter
rwlock_releases_total{lock="test",mode="read"} 1
rwlock_releases_total{lock="test",mode="write"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rwlock_releases_total"))
}
