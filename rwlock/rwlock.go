package rwlock

import (
	"context"
	"sync"
)

// An RWLock is a reentrant reader/writer lock with read-to-write upgrade,
// write-to-read downgrade and writer preference.
// The lock can be held by an arbitrary number of readers or a single writer.
// The zero value for an RWLock is an unlocked lock.
//
// Unlike sync.RWMutex, an RWLock is associated with the Caller that acquired
// it: the same Caller may re-acquire a hold it already has without blocking,
// and only the holder may release it.
//
// If any Caller is waiting in LockWrite, new readers block until the write
// request is served. Callers that already hold a read acquisition are not
// affected and may re-acquire it.
//
// An RWLock must not be copied after first use.
type RWLock struct {
	mu sync.Mutex
	st state
	// closed and replaced on every release, wakes all waiters
	changed chan struct{}
	obs     Observer
}

// New creates *RWLock.
func New(opts ...Option) *RWLock {
	l := &RWLock{}
	for _, opt := range opts {
		opt(l)
	}
	l.lazyInit()
	return l
}

func (l *RWLock) lazyInit() {
	l.st.init()
	if l.changed == nil {
		l.changed = make(chan struct{})
	}
}

func (l *RWLock) observer() Observer {
	if l.obs == nil {
		return nopObserver{}
	}
	return l.obs
}

// broadcast wakes every suspended caller. l.mu must be held.
func (l *RWLock) broadcast() {
	close(l.changed)
	l.changed = make(chan struct{})
}

// wait suspends the caller until the next broadcast or until ctx is done.
// l.mu must be held on entry and is held again on return.
func (l *RWLock) wait(ctx context.Context, c Caller, m Mode, waited *bool) error {
	ch := l.changed
	l.mu.Unlock()

	if !*waited {
		*waited = true
		l.observer().Waiting(c, m)
	}

	var err error
	select {
	case <-ch:
	case <-ctx.Done():
		err = ctx.Err()
	}

	l.mu.Lock()
	return err
}

func (l *RWLock) fail(err error) error {
	l.observer().Violation(err)
	return err
}

// LockRead locks l for reading on behalf of c.
//
// It does not block if c already holds a read acquisition or the write lock.
// Otherwise it blocks while another Caller holds the write lock or waits for
// it. If ctx is done before the lock is granted, LockRead returns an error
// matching ErrCancelled and l is left untouched.
func (l *RWLock) LockRead(ctx context.Context, c Caller) error {
	if c.IsZero() {
		return l.fail(violation("LockRead", c, "zero caller"))
	}
	if err := ctx.Err(); err != nil {
		l.observer().Cancelled(c, ModeRead, false)
		return cancelled("LockRead", err)
	}

	l.mu.Lock()
	l.lazyInit()
	waited := false
	for !l.st.canGrantRead(c) {
		if err := l.wait(ctx, c, ModeRead, &waited); err != nil {
			l.mu.Unlock()
			l.observer().Cancelled(c, ModeRead, waited)
			return cancelled("LockRead", err)
		}
	}
	l.st.addRead(c)
	l.mu.Unlock()

	l.observer().Granted(c, ModeRead, waited)
	return nil
}

// UnlockRead undoes a single LockRead call of c;
// it does not affect other simultaneous readers.
// It returns an error matching ErrProtocolViolation if c does not hold
// a read acquisition.
func (l *RWLock) UnlockRead(c Caller) error {
	if c.IsZero() {
		return l.fail(violation("UnlockRead", c, "zero caller"))
	}

	l.mu.Lock()
	l.lazyInit()
	if !l.st.releaseRead(c) {
		l.mu.Unlock()
		return l.fail(violation("UnlockRead", c, "caller does not hold a read lock"))
	}
	l.broadcast()
	l.mu.Unlock()

	l.observer().Released(c, ModeRead)
	return nil
}

// LockWrite locks l for writing on behalf of c.
//
// The lock is granted when nobody else holds it, when c already holds the
// write lock, or when c is the only reader (upgrade). An upgraded caller
// keeps its read acquisition and must release both.
// If ctx is done before the lock is granted, LockWrite returns an error
// matching ErrCancelled and l is left untouched.
func (l *RWLock) LockWrite(ctx context.Context, c Caller) error {
	if c.IsZero() {
		return l.fail(violation("LockWrite", c, "zero caller"))
	}
	if err := ctx.Err(); err != nil {
		l.observer().Cancelled(c, ModeWrite, false)
		return cancelled("LockWrite", err)
	}

	l.mu.Lock()
	l.lazyInit()
	l.st.pendingWrites++
	waited := false
	for !l.st.canGrantWrite(c) {
		if err := l.wait(ctx, c, ModeWrite, &waited); err != nil {
			l.st.pendingWrites--
			// Readers held back by this request may proceed now.
			l.broadcast()
			l.mu.Unlock()
			l.observer().Cancelled(c, ModeWrite, waited)
			return cancelled("LockWrite", err)
		}
	}
	l.st.pendingWrites--
	l.st.addWrite(c)
	l.mu.Unlock()

	l.observer().Granted(c, ModeWrite, waited)
	return nil
}

// UnlockWrite undoes a single LockWrite call of c.
// The write lock is released once every reentrant LockWrite is undone.
// It returns an error matching ErrProtocolViolation if c is not the writer.
func (l *RWLock) UnlockWrite(c Caller) error {
	if c.IsZero() {
		return l.fail(violation("UnlockWrite", c, "zero caller"))
	}

	l.mu.Lock()
	l.lazyInit()
	if !l.st.releaseWrite(c) {
		l.mu.Unlock()
		return l.fail(violation("UnlockWrite", c, "caller does not hold the write lock"))
	}
	l.broadcast()
	l.mu.Unlock()

	l.observer().Released(c, ModeWrite)
	return nil
}

// Snapshot returns a copy of the current bookkeeping of l.
func (l *RWLock) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.snapshot()
}
