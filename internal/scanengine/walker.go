// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import "context"

// Walker is the MergeWalker: an AVL tournament tree of cursors, always
// keeping the cursor with the lowest current key at the tree's leftmost
// position so Next can extract it in O(log N).
//
// Every cursor that still has entries left sits in the tree exactly
// once. A cursor that has reported Exhausted (or hit a fatal error) is
// removed and never reinserted.
type Walker struct {
	tree       mergeTree
	setup      []*cursor // cursors not yet primed for the first time
	all        []*cursor // every registered cursor, live or dropped; closed by closeAll
	primed     bool
	pendingErr error // a fatal error from re-priming the previous winner
}

func newWalker() *Walker {
	return &Walker{}
}

// insertChild registers a not-yet-primed cursor with the walker. Must
// only be called before primeAll.
func (w *Walker) insertChild(c *cursor) {
	w.setup = append(w.setup, c)
	w.all = append(w.all, c)
}

// primeAll advances every registered cursor once under lockForUpdate,
// discarding any that are immediately exhausted, and builds the
// initial tree. Cursors that fail with a fatal error abort priming
// entirely and the error is returned at once; releasing the cursors is
// left to the caller (ScanDriver.Open calls releaseAll).
func (w *Walker) primeAll(ctx context.Context, lockForUpdate bool) error {
	setup := w.setup
	w.setup = nil
	w.primed = true

	for _, c := range setup {
		if err := w.primeOne(ctx, c, lockForUpdate); err != nil {
			kind, _ := KindOf(err)
			if kind == Exhausted {
				continue
			}
			return err
		}
	}
	return nil
}

// primeOne advances c until it holds a record with a key not already
// present in the tree, then inserts it. Ties on key are broken by
// indexkey.Compare's record-id tiebreak, so a genuine duplicate here
// means the same record was reached via two different index ranges;
// the later cursor's entry is released and the cursor is advanced
// again rather than silently dropped, so its reference count stays
// balanced and the stream still eventually reaches its other entries.
func (w *Walker) primeOne(ctx context.Context, c *cursor, lockForUpdate bool) error {
	for {
		if err := c.advance(ctx, lockForUpdate); err != nil {
			return err
		}

		if w.collides(c) {
			c.current.Release()
			c.current = nil
			continue
		}

		w.tree.insert(c)
		return nil
	}
}

// collides reports whether some other cursor already in the tree holds
// the exact same key as c's current record.
func (w *Walker) collides(c *cursor) bool {
	n := w.tree.root
	for n != nil {
		switch cmp := compareCursors(c, n); {
		case cmp == 0 && n != c:
			return true
		case cmp < 0:
			n = n.lowerChild
		default:
			n = n.higherChild
		}
	}
	return false
}

// leftmost returns the tree's minimum-key node, i.e. the cursor Next
// must extract.
func leftmost(n *cursor) *cursor {
	if n == nil {
		return nil
	}
	for n.lowerChild != nil {
		n = n.lowerChild
	}
	return n
}

// Next extracts the lowest-key record across every live cursor,
// advances that cursor, and reinserts it (or drops it, if exhausted).
// Returns Exhausted once every cursor has been consumed.
//
// A fatal error while advancing the *just-extracted* cursor must not
// swallow the record Next is already committed to returning: it is
// stashed and surfaced on the following call instead, so one cursor's
// failure never corrupts delivery of a result that already won the
// tournament.
//
// lockForUpdate governs the re-advance in step 5 only, i.e. it decides
// whether the *next* record that cursor produces is lock-resolved, not
// whether the record this call returns was. A caller that wants every
// record of a scan locked must pass the same lockForUpdate to Open (for
// the initial prime) and to every subsequent Next call.
func (w *Walker) Next(ctx context.Context, lockForUpdate bool) (*Record, error) {
	if !w.primed {
		return nil, newErr("next", InvariantViolation, nil)
	}
	if w.pendingErr != nil {
		err := w.pendingErr
		w.pendingErr = nil
		return nil, err
	}

	min := leftmost(w.tree.root)
	if min == nil {
		return nil, newErr("next", Exhausted, nil)
	}

	rec := min.current
	min.current = nil
	w.tree.remove(min)

	if err := w.primeOne(ctx, min, lockForUpdate); err != nil {
		kind, _ := KindOf(err)
		if kind != Exhausted {
			w.pendingErr = err
		}
	}

	return rec, nil
}

// releaseAll drops every cursor's held record and page source without
// attempting to report errors; used to unwind a failed Open.
func (w *Walker) releaseAll() {
	w.closeAll()
}

// closeAll closes every cursor ever registered with the walker, whether
// it is parked in the tree, still sitting in the unprimed setup list, or
// was already dropped as exhausted or failed. Every record any cursor
// holds is released exactly once, closing the gap the walked-from
// engine left to caller discipline.
func (w *Walker) closeAll() error {
	var first error
	for _, c := range w.all {
		if err := c.close(); err != nil && first == nil {
			first = err
		}
	}
	w.all = nil
	w.setup = nil
	w.tree.root = nil

	return first
}
