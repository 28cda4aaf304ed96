// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"bytes"
	"context"

	"github.com/scoutdb/scoutdb/pkg/indexkey"
)

// IndexRange bounds one cursor's walk of an index, in index-key order.
// A nil bound is unbounded on that side. Whether a non-nil bound is
// inclusive or exclusive is controlled by the cursor's Flags
// (IncludeLowerBound/IncludeUpperBound), not by IndexRange itself; with
// both flags left false the range is open on both sides, (Lower, Upper),
// and setting IncludeLowerBound gives the half-open range [Lower, Upper).
// Bounds are compared against an entry's key bytes only; their RecordID
// is ignored.
type IndexRange struct {
	Lower *indexkey.Key
	Upper *indexkey.Key
}

// cursor is one IndexCursor. It doubles as a MergeNode: the AVL tree
// pointers are embedded directly on the struct, following the same
// intrusive-link technique the cache package uses for its eviction
// list, rather than boxing nodes in a separate tree type.
type cursor struct {
	source   PageSource
	resolver Resolver
	snap     Snapshot
	rng      IndexRange
	flags    Flags

	// current holds the resolved record the cursor is parked on, once
	// primed. It is nil before the first successful advance and after
	// the cursor is exhausted.
	current *Record
	entry   IndexEntry
	done    bool

	// AVL tree link fields. lowerChild/higherChild are the left/right
	// children in key order; parent is nil only for the tree root
	// (mergeTree.root) and for a detached cursor. height is the subtree
	// height rooted at this node (0 for a detached node); balance is
	// derived from the children's heights, never stored directly, so
	// there is no risk of it drifting out of sync after a rotation.
	parent      *cursor
	lowerChild  *cursor
	higherChild *cursor
	height      int8
}

// nodeHeight returns n's cached height, treating nil as height 0.
func nodeHeight(n *cursor) int8 {
	if n == nil {
		return 0
	}
	return n.height
}

// balance is height(higherChild) - height(lowerChild). Negative means
// left-heavy, positive means right-heavy; AVL requires it stay in
// [-1, 1] for every node once rebalancing completes.
func (c *cursor) balance() int8 {
	return nodeHeight(c.higherChild) - nodeHeight(c.lowerChild)
}

// recalcHeight recomputes c.height from its children. Must be called
// bottom-up after any structural change under c.
func (c *cursor) recalcHeight() {
	hl, hr := nodeHeight(c.lowerChild), nodeHeight(c.higherChild)
	if hl > hr {
		c.height = hl + 1
	} else {
		c.height = hr + 1
	}
}

// newCursor constructs a cursor over one PageSource, not yet primed.
func newCursor(src PageSource, resolver Resolver, snap Snapshot, rng IndexRange, flags Flags) *cursor {
	return &cursor{source: src, resolver: resolver, snap: snap, rng: rng, flags: flags}
}

// advance resolves the cursor's next visible, in-range record, skipping
// stale or invisible entries. lockForUpdate is supplied by the caller
// on every call (Walker.primeAll/primeOne thread through whatever the
// current Open/Next call passed) rather than being fixed on the
// cursor, per spec.md §4.3's advance(lockForUpdate) signature. It
// implements the seven-step walk:
//  1. pull the next raw entry from the page source
//  2. skip entries below the range's lower bound; stop once its upper
//     bound is exceeded
//  3. resolve the entry against the snapshot (optionally locking)
//  4. on NotFound/VersionMismatch, skip and retry from step 1
//  5. on LockDenied, honor flags.LockPolicy
//  6. release any previously held record before taking the new one
//  7. park the cursor on the resolved record, or mark it done
func (c *cursor) advance(ctx context.Context, lockForUpdate bool) error {
	c.current.Release()
	c.current = nil

	for {
		entry, err := c.source.Next(ctx)
		if err != nil {
			if IsExhausted(err) {
				c.done = true
				return newErr("advance", Exhausted, nil)
			}
			return newErr("advance", StorageError, err)
		}

		if c.rng.Lower != nil {
			cmp := bytes.Compare(entry.Key.Bytes, c.rng.Lower.Bytes)
			if cmp < 0 || (cmp == 0 && !c.flags.IncludeLowerBound) {
				continue
			}
		}

		if c.rng.Upper != nil {
			cmp := bytes.Compare(entry.Key.Bytes, c.rng.Upper.Bytes)
			if cmp > 0 || (cmp == 0 && !c.flags.IncludeUpperBound) {
				c.done = true
				return newErr("advance", Exhausted, nil)
			}
		}

		var rec *Record
		if lockForUpdate {
			rec, err = c.resolver.FetchForUpdate(ctx, entry, c.snap, c.flags.LockPolicy)
		} else {
			rec, err = c.resolver.Fetch(ctx, entry, c.snap)
		}
		if err != nil {
			kind, ok := KindOf(err)
			if !ok {
				return newErr("advance", StorageError, err)
			}
			switch kind {
			case NotFound, VersionMismatch:
				reportSkip(kind)
				continue
			case LockDenied:
				reportSkip(kind)
				if c.flags.LockPolicy == LockPolicyFail {
					return err
				}
				continue
			default:
				return err
			}
		}

		if rec.Deleted && c.flags.SkipDeleted {
			rec.Release()
			continue
		}

		c.entry = entry
		c.current = rec
		return nil
	}
}

// key returns the ordering key of the cursor's current record. Must
// only be called while the cursor is primed (current != nil).
func (c *cursor) key() indexkey.Key {
	return indexkey.Key{Bytes: c.entry.Key.Bytes, RecordID: c.entry.RecordID}
}

// close releases the cursor's held record (if any) and its page source.
func (c *cursor) close() error {
	c.current.Release()
	c.current = nil
	if c.source == nil {
		return nil
	}
	if err := c.source.Close(); err != nil {
		return newErr("close", StorageError, err)
	}
	return nil
}
