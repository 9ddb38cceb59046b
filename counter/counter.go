// Package counter is a shared integer guarded by a reentrant rwlock.
package counter

import (
	"context"
	"errors"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

// Shared is an int64 that many callers read and few callers modify.
type Shared struct {
	lock  *rwlock.RWLock
	value int64
}

// New creates a Shared counter guarded by lock. A nil lock is replaced by
// a fresh one.
func New(lock *rwlock.RWLock) *Shared {
	if lock == nil {
		lock = rwlock.New()
	}
	return &Shared{lock: lock}
}

// Lock returns the lock guarding the counter.
func (s *Shared) Lock() *rwlock.RWLock {
	return s.lock
}

// Get returns the current value under a read lock.
func (s *Shared) Get(ctx context.Context, c rwlock.Caller) (v int64, err error) {
	if err := s.lock.LockRead(ctx, c); err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, s.lock.UnlockRead(c))
	}()
	return s.value, nil
}

// Add adds delta under the write lock and returns the new value.
func (s *Shared) Add(ctx context.Context, c rwlock.Caller, delta int64) (v int64, err error) {
	if err := s.lock.LockWrite(ctx, c); err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, s.lock.UnlockWrite(c))
	}()
	s.value += delta
	return s.value, nil
}

// Update reads the value, computes the next one outside of exclusive access
// and upgrades to a write lock to store it.
//
// Upgrade only succeeds while c is the only reader, so Update blocks while
// other callers read. Two concurrent Updates can block each other until one
// of them is cancelled through ctx.
func (s *Shared) Update(ctx context.Context, c rwlock.Caller, f func(int64) int64) (v int64, err error) {
	if err := s.lock.LockRead(ctx, c); err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, s.lock.UnlockRead(c))
	}()

	next := f(s.value)

	if err := s.lock.LockWrite(ctx, c); err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, s.lock.UnlockWrite(c))
	}()

	s.value = next
	return s.value, nil
}
