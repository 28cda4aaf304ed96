// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package txn provides the MVCC snapshot handle a scan is pinned to.
//
// A Txn is grounded on the teacher's internal/repository.Transaction,
// which bundles related inserts into one *sqlx.Tx for speed. Here the
// same "hold one *sqlx.Tx, hand out a cheap per-caller handle" shape is
// generalized from "batch of inserts" to "read snapshot plus, for
// writers, the commit sequence a new version is stamped with".
package txn

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"github.com/scoutdb/scoutdb/pkg/log"
)

// ownerSeq hands out the unique token internal/lockmgr uses to tell
// "who is waiting on whom" apart; it is independent of the commit
// clock so that two concurrent read-only snapshots (both with
// commitSeq == 0) never collide as lock owners.
var ownerSeq atomic.Uint64

// clock hands out monotonically increasing commit sequence numbers.
// It is an in-process counter seeded from the database at startup; a
// real multi-writer deployment would back this with a durable sequence
// table, but scoutdb runs a single writer against its embedded sqlite3
// file, so an in-memory atomic counter is sufficient and avoids a
// write on every read-only scan's Begin.
type clock struct {
	mu   sync.Mutex
	next uint64
}

func (c *clock) current() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

func (c *clock) advance() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return c.next
}

var globalClock = &clock{}

// Seed initializes the commit clock from the highest commit_seq already
// present in record_version, so sequence numbers stay monotonic across
// restarts. Call once during startup, after the schema migration has
// run and before any Txn is opened.
func Seed(highestCommitSeq uint64) {
	globalClock.mu.Lock()
	defer globalClock.mu.Unlock()
	if highestCommitSeq > globalClock.next {
		globalClock.next = highestCommitSeq
	}
}

// Txn is a snapshot/transaction handle. Read-only scans only need
// Snapshot/Sees; a Txn that will write new versions also carries the
// *sqlx.Tx those writes execute inside and the commit sequence its own
// writes will be stamped with.
type Txn struct {
	snapshotSeq uint64
	commitSeq   uint64
	owner       uint64
	tx          *sqlx.Tx
}

// Begin opens a read-only snapshot pinned to the commit sequence
// visible at this instant: every row version committed at or before
// snapshotSeq is visible, nothing committed after it is, regardless of
// what commits while this Txn is in use.
func Begin() *Txn {
	return &Txn{snapshotSeq: globalClock.current(), owner: ownerSeq.Add(1)}
}

// ID returns a token uniquely identifying this Txn among every Txn
// opened in the process, for use as an internal/lockmgr owner.
func (t *Txn) ID() uint64 {
	return t.owner
}

// BeginWrite opens a transaction that will also write new row
// versions. Its own writes are stamped with a freshly allocated commit
// sequence, one past every sequence any reader could currently see, so
// a reader that began before Commit cannot observe the new version.
func BeginWrite(ctx context.Context, db *sqlx.DB) (*Txn, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		log.Warn("txn: failed to begin write transaction")
		return nil, err
	}
	seq := globalClock.advance()
	return &Txn{snapshotSeq: seq - 1, commitSeq: seq, owner: ownerSeq.Add(1), tx: tx}, nil
}

// Sees reports whether a row version committed at commitSeq is visible
// to this snapshot.
func (t *Txn) Sees(commitSeq uint64) bool {
	return commitSeq <= t.snapshotSeq
}

// CommitSeq returns the sequence number this Txn's own writes are
// stamped with. Only meaningful for a Txn returned by BeginWrite.
func (t *Txn) CommitSeq() uint64 {
	return t.commitSeq
}

// Tx returns the underlying *sqlx.Tx for a Txn opened with BeginWrite,
// or nil for a read-only snapshot from Begin.
func (t *Txn) Tx() *sqlx.Tx {
	return t.tx
}

// Commit finalizes a write transaction. Safe to call on a read-only
// Txn (a no-op, since there is no *sqlx.Tx to commit).
func (t *Txn) Commit() error {
	if t.tx == nil {
		return nil
	}
	if err := t.tx.Commit(); err != nil {
		log.Warn("txn: commit failed")
		return err
	}
	return nil
}

// Rollback aborts a write transaction. Safe to call on a read-only Txn.
func (t *Txn) Rollback() error {
	if t.tx == nil {
		return nil
	}
	return t.tx.Rollback()
}
