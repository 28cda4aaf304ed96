// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"context"

	"github.com/scoutdb/scoutdb/pkg/indexkey"
)

// IndexEntry is one (key, pointer) pair as stored on an index page.
type IndexEntry struct {
	Key        indexkey.Key
	RecordID   int64
	RecordAddr uint64 // storage-level location hint, opaque to the merge
}

// PageSource walks one index range in ascending key order, one page of
// entries at a time. Implementations own their own cursor state and are
// not required to be safe for concurrent use.
type PageSource interface {
	// Next returns the next IndexEntry in the range, or an Exhausted
	// ScanError once the range is consumed.
	Next(ctx context.Context) (IndexEntry, error)
	// Close releases any resources (statement handles, page pins) held
	// by the source. Safe to call more than once.
	Close() error
}

// Resolver turns an index entry into a live, visible Record, applying
// MVCC snapshot visibility and the optional row lock.
type Resolver interface {
	// Fetch resolves entry under snap's visibility rules. Returns a
	// VersionMismatch ScanError if the resolved row's current key no
	// longer matches entry.Key.Bytes, or NotFound if the record id no
	// longer exists.
	Fetch(ctx context.Context, entry IndexEntry, snap Snapshot) (*Record, error)
	// FetchForUpdate behaves like Fetch but additionally takes the row
	// lock, blocking per lockPolicy. Returns LockDenied if the lock
	// cannot be acquired under policy.
	FetchForUpdate(ctx context.Context, entry IndexEntry, snap Snapshot, policy LockPolicy) (*Record, error)
}

// Snapshot is the MVCC visibility boundary a scan is pinned to.
type Snapshot interface {
	// Sees reports whether a row version committed at commitSeq is
	// visible to this snapshot.
	Sees(commitSeq uint64) bool
}
