// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lockmgr implements a per-row lock table used by
// internal/recordstore to serve FetchForUpdate. The "block the caller
// until the holder is done" shape is the same one pkg/lrucache.Cache
// uses to coalesce concurrent computations of the same cache key
// (sync.Cond plus a waiter count); here it gates exclusive access to a
// row instead of a cache entry's computed value.
package lockmgr

import (
	"context"
	"errors"
	"sync"
)

// ErrDeadlock is returned by Lock when granting the request would close
// a wait-for cycle among current holders.
var ErrDeadlock = errors.New("lockmgr: deadlock detected")

type rowLock struct {
	cond    *sync.Cond
	holder  uint64 // 0 means unlocked
	waiting int
}

// Manager is a table of per-row exclusive locks keyed by record id.
// Owners are identified by an opaque uint64 token supplied by the
// caller (typically txn.Txn.ID, a per-transaction token kept apart from
// the commit/snapshot sequence); Manager does not
// interpret it beyond equality and cycle detection.
type Manager struct {
	mu    sync.Mutex
	locks map[int64]*rowLock
	// waitsFor[owner] = the owner currently blocking it, used only for
	// the cheap cycle check performed before a caller actually blocks.
	waitsFor map[uint64]uint64
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		locks:    make(map[int64]*rowLock),
		waitsFor: make(map[uint64]uint64),
	}
}

// TryLock acquires recordID for owner without blocking. It reports
// whether the lock was granted.
func (m *Manager) TryLock(recordID int64, owner uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[recordID]
	if !ok {
		l = &rowLock{cond: sync.NewCond(&m.mu)}
		m.locks[recordID] = l
	}
	if l.holder == 0 || l.holder == owner {
		l.holder = owner
		return true
	}
	return false
}

// Lock acquires recordID for owner, blocking until it is free, ctx is
// done, or granting the request would close a wait-for cycle back to
// owner (ErrDeadlock).
func (m *Manager) Lock(ctx context.Context, recordID int64, owner uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[recordID]
	if !ok {
		l = &rowLock{cond: sync.NewCond(&m.mu)}
		m.locks[recordID] = l
	}

	for l.holder != 0 && l.holder != owner {
		if m.wouldDeadlock(owner, l.holder) {
			return ErrDeadlock
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		m.waitsFor[owner] = l.holder
		l.waiting++

		// sync.Cond has no context-aware Wait, so a watcher goroutine
		// broadcasts once ctx is done to unblock every waiter, who
		// then re-checks ctx.Err() in the loop condition above.
		done := make(chan struct{})
		stop := context.AfterFunc(ctx, func() {
			m.mu.Lock()
			l.cond.Broadcast()
			m.mu.Unlock()
			close(done)
		})
		l.cond.Wait()
		stop()
		select {
		case <-done:
		default:
		}

		l.waiting--
		delete(m.waitsFor, owner)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	l.holder = owner
	return nil
}

// wouldDeadlock reports whether owner, by waiting on blocker, would
// close a cycle: i.e. blocker (transitively, via waitsFor) is itself
// already waiting on owner. Must be called with m.mu held.
func (m *Manager) wouldDeadlock(owner, blocker uint64) bool {
	seen := map[uint64]bool{owner: true}
	cur := blocker
	for {
		if seen[cur] {
			return cur == owner
		}
		seen[cur] = true
		next, ok := m.waitsFor[cur]
		if !ok {
			return false
		}
		cur = next
	}
}

// Unlock releases recordID if held by owner. Unlocking a lock not held
// by owner is a no-op.
func (m *Manager) Unlock(recordID int64, owner uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[recordID]
	if !ok || l.holder != owner {
		return
	}
	l.holder = 0
	if l.waiting == 0 {
		delete(m.locks, recordID)
		return
	}
	l.cond.Broadcast()
}
