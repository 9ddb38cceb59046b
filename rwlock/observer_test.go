package rwlock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
	"gitlab.com/slon/reentrant-rwlock/rwlock/mock_rwlock"
)

func TestObserver_Events(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := mock_rwlock.NewMockObserver(ctrl)

	l := rwlock.New(rwlock.WithObserver(obs))
	ctx := context.Background()
	c, stranger := rwlock.NewCaller(), rwlock.NewCaller()

	gomock.InOrder(
		obs.EXPECT().Granted(c, rwlock.ModeRead, false),
		obs.EXPECT().Granted(c, rwlock.ModeWrite, false),
		obs.EXPECT().Released(c, rwlock.ModeWrite),
		obs.EXPECT().Released(c, rwlock.ModeRead),
		obs.EXPECT().Violation(gomock.Any()).Do(func(err error) {
			require.ErrorIs(t, err, rwlock.ErrProtocolViolation)
		}),
	)

	require.NoError(t, l.LockRead(ctx, c))
	require.NoError(t, l.LockWrite(ctx, c))
	require.NoError(t, l.UnlockWrite(c))
	require.NoError(t, l.UnlockRead(c))
	require.Error(t, l.UnlockRead(stranger))
}

func TestObserver_WaitAndCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := mock_rwlock.NewMockObserver(ctrl)

	l := rwlock.New(rwlock.WithObserver(obs))
	w, r := rwlock.NewCaller(), rwlock.NewCaller()

	suspended := make(chan struct{})
	gomock.InOrder(
		obs.EXPECT().Granted(w, rwlock.ModeWrite, false),
		obs.EXPECT().Waiting(r, rwlock.ModeRead).Do(func(rwlock.Caller, rwlock.Mode) {
			close(suspended)
		}),
		obs.EXPECT().Cancelled(r, rwlock.ModeRead, true),
		obs.EXPECT().Released(w, rwlock.ModeWrite),
	)

	require.NoError(t, l.LockWrite(context.Background(), w))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.LockRead(ctx, r) }()

	select {
	case <-suspended:
	case <-time.After(5 * time.Second):
		t.Fatal("reader was not suspended")
	}
	cancel()
	require.ErrorIs(t, <-done, rwlock.ErrCancelled)

	require.NoError(t, l.UnlockWrite(w))
}

func TestObserver_CancelledOnEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	obs := mock_rwlock.NewMockObserver(ctrl)

	l := rwlock.New(rwlock.WithObserver(obs))
	c := rwlock.NewCaller()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	obs.EXPECT().Cancelled(c, rwlock.ModeWrite, false)
	require.ErrorIs(t, l.LockWrite(ctx, c), context.Canceled)
}

type countingObserver struct {
	granted, released int
}

func (o *countingObserver) Waiting(rwlock.Caller, rwlock.Mode)         {}
func (o *countingObserver) Cancelled(rwlock.Caller, rwlock.Mode, bool) {}
func (o *countingObserver) Violation(error)                            {}

func (o *countingObserver) Granted(rwlock.Caller, rwlock.Mode, bool) { o.granted++ }
func (o *countingObserver) Released(rwlock.Caller, rwlock.Mode)      { o.released++ }

func TestObservers_FanOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	l := rwlock.New(rwlock.WithObserver(a), rwlock.WithObserver(nil), rwlock.WithObserver(b))
	h := l.Bind(rwlock.NewCaller())

	require.NoError(t, h.RLock(context.Background()))
	require.NoError(t, h.RUnlock())

	for _, o := range []*countingObserver{a, b} {
		require.Equal(t, 1, o.granted)
		require.Equal(t, 1, o.released)
	}
}

func TestViolationError(t *testing.T) {
	l := rwlock.New()
	c := rwlock.NewCaller()

	err := l.UnlockWrite(c)
	var verr *rwlock.ViolationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, c, verr.Caller)
	require.Contains(t, err.Error(), c.String())
}
