// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"sync/atomic"

	"github.com/scoutdb/scoutdb/pkg/indexkey"
)

// Record is a reference-counted handle on a resolved row version. The
// merge tree and its callers share ownership: every handle obtained from
// Next must eventually be released exactly once via Release.
type Record struct {
	Key     indexkey.Key
	Columns map[string]any

	// Deleted reports whether the resolved row version is a tombstone.
	// A Resolver sets this instead of refusing to resolve the entry, so
	// that cursor.advance can decide whether to skip it based on the
	// scan's Flags.SkipDeleted rather than the resolver baking in that
	// policy.
	Deleted bool

	refs    int32
	release func(*Record)
}

// NewRecord builds a Record with an initial reference count of one.
// release is invoked once the count drops to zero; it may be nil for
// records that own no external resources (tests, in-memory resolvers).
func NewRecord(key indexkey.Key, columns map[string]any, release func(*Record)) *Record {
	return &Record{Key: key, Columns: columns, refs: 1, release: release}
}

// NewDeletedRecord builds a Record identical to NewRecord but flagged as
// a tombstone. Callers that resolve a row through a SkipDeleted-aware
// path (see cursor.advance) use this instead of NewRecord so the flag
// survives the resolver boundary.
func NewDeletedRecord(key indexkey.Key, columns map[string]any, release func(*Record)) *Record {
	return &Record{Key: key, Columns: columns, Deleted: true, refs: 1, release: release}
}

// addRef increments the reference count. Used whenever a second owner
// (e.g. a caller retaining a record past the merge's own release) needs
// to keep it alive.
func (r *Record) addRef() {
	atomic.AddInt32(&r.refs, 1)
}

// Release drops one reference. Once the count reaches zero the backing
// release callback runs, returning any underlying storage pin.
func (r *Record) Release() {
	if r == nil {
		return
	}
	if atomic.AddInt32(&r.refs, -1) == 0 && r.release != nil {
		r.release(r)
	}
}

// RefCount reports the current reference count. Exposed for tests that
// verify property P4 (no leaked references survive a closed scan).
func (r *Record) RefCount() int32 {
	return atomic.LoadInt32(&r.refs)
}
