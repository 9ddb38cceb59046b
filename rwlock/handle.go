package rwlock

import "context"

// Handle is an RWLock bound to a single Caller.
type Handle struct {
	l *RWLock
	c Caller
}

// Bind returns a Handle acting as c. A zero c is replaced by a new Caller.
func (l *RWLock) Bind(c Caller) *Handle {
	if c.IsZero() {
		c = NewCaller()
	}
	return &Handle{l: l, c: c}
}

// Caller returns the Caller h acts as.
func (h *Handle) Caller() Caller {
	return h.c
}

// RLock calls LockRead on behalf of the bound Caller.
func (h *Handle) RLock(ctx context.Context) error {
	return h.l.LockRead(ctx, h.c)
}

// RUnlock calls UnlockRead on behalf of the bound Caller.
func (h *Handle) RUnlock() error {
	return h.l.UnlockRead(h.c)
}

// Lock calls LockWrite on behalf of the bound Caller.
func (h *Handle) Lock(ctx context.Context) error {
	return h.l.LockWrite(ctx, h.c)
}

// Unlock calls UnlockWrite on behalf of the bound Caller.
func (h *Handle) Unlock() error {
	return h.l.UnlockWrite(h.c)
}

// Holds reports how many read and write acquisitions the bound Caller has.
func (h *Handle) Holds() (reads, writes int) {
	h.l.mu.Lock()
	defer h.l.mu.Unlock()
	if h.l.st.isWriter(h.c) {
		writes = h.l.st.writeDepth
	}
	return h.l.st.readers[h.c], writes
}
