// Package cache is a key/value map guarded by a reentrant rwlock.
package cache

import (
	"context"
	"errors"

	"gitlab.com/slon/reentrant-rwlock/rwlock"
)

// Cache maps keys to values. Lookups share the lock, modifications take it
// exclusively. Every method acts on behalf of a Caller, so a caller holding
// the lock through Lock may call them reentrantly.
type Cache[K comparable, V any] struct {
	lock *rwlock.RWLock
	m    map[K]V
}

// New creates an empty Cache guarded by lock. A nil lock is replaced by a
// fresh one.
func New[K comparable, V any](lock *rwlock.RWLock) *Cache[K, V] {
	if lock == nil {
		lock = rwlock.New()
	}
	return &Cache[K, V]{lock: lock, m: make(map[K]V)}
}

// Lock returns the lock guarding the cache.
func (c *Cache[K, V]) Lock() *rwlock.RWLock {
	return c.lock
}

// Get returns the value stored under key.
func (c *Cache[K, V]) Get(ctx context.Context, caller rwlock.Caller, key K) (v V, ok bool, err error) {
	if err := c.lock.LockRead(ctx, caller); err != nil {
		return v, false, err
	}
	defer func() {
		err = errors.Join(err, c.lock.UnlockRead(caller))
	}()

	v, ok = c.m[key]
	return v, ok, nil
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len(ctx context.Context, caller rwlock.Caller) (n int, err error) {
	if err := c.lock.LockRead(ctx, caller); err != nil {
		return 0, err
	}
	defer func() {
		err = errors.Join(err, c.lock.UnlockRead(caller))
	}()
	return len(c.m), nil
}

// Put stores v under key, replacing the previous value.
func (c *Cache[K, V]) Put(ctx context.Context, caller rwlock.Caller, key K, v V) error {
	return c.write(ctx, caller, func() { c.m[key] = v })
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(ctx context.Context, caller rwlock.Caller, key K) error {
	return c.write(ctx, caller, func() { delete(c.m, key) })
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear(ctx context.Context, caller rwlock.Caller) error {
	return c.write(ctx, caller, func() { c.m = make(map[K]V) })
}

func (c *Cache[K, V]) write(ctx context.Context, caller rwlock.Caller, f func()) error {
	if err := c.lock.LockWrite(ctx, caller); err != nil {
		return err
	}
	f()
	return c.lock.UnlockWrite(caller)
}
