// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import "github.com/scoutdb/scoutdb/pkg/indexkey"

// This file holds the AVL mechanics that turn the cursor's embedded
// parent/lowerChild/higherChild links into a self-balancing tournament
// tree: rotations, insert/delete rebalancing, and the two-children
// delete case. MergeWalker in walker.go drives extract-min/advance/
// reinsert on top of these primitives.

func compareCursors(a, b *cursor) int {
	return indexkey.Compare(a.key(), b.key())
}

// linkChild attaches child as n's lower or higher child, fixing up the
// child's parent pointer. child may be nil.
func (n *cursor) linkChild(child *cursor, lower bool) {
	if lower {
		n.lowerChild = child
	} else {
		n.higherChild = child
	}
	if child != nil {
		child.parent = n
	}
}

// replaceInParent rewrites old's parent to point at replacement instead
// (or updates the tree's root pointer when old has no parent).
func (t *mergeTree) replaceInParent(old, replacement *cursor) {
	p := old.parent
	if p == nil {
		t.root = replacement
		if replacement != nil {
			replacement.parent = nil
		}
		return
	}
	if p.lowerChild == old {
		p.linkChild(replacement, true)
	} else {
		p.linkChild(replacement, false)
	}
}

// mergeTree is the AVL tree of cursors, keyed by each cursor's current
// record. It is embedded in Walker rather than exported on its own,
// since nothing outside the merge ever needs a bare tree.
type mergeTree struct {
	root *cursor
}

// rotateLeft performs a single left rotation around p (p.balance > 0).
// Returns the node that takes p's former position.
func (t *mergeTree) rotateLeft(p *cursor) *cursor {
	r := p.higherChild
	t.replaceInParent(p, r)
	p.linkChild(r.lowerChild, false)
	r.linkChild(p, true)
	p.recalcHeight()
	r.recalcHeight()
	reportRotation()
	return r
}

// rotateRight performs a single right rotation around p (p.balance < 0).
// Returns the node that takes p's former position.
func (t *mergeTree) rotateRight(p *cursor) *cursor {
	l := p.lowerChild
	t.replaceInParent(p, l)
	p.linkChild(l.higherChild, true)
	l.linkChild(p, false)
	p.recalcHeight()
	l.recalcHeight()
	reportRotation()
	return l
}

// rebalance restores the AVL property at p, which is assumed to be
// unbalanced by at most one insert/delete step (|balance| == 2). It
// returns the node now occupying p's former position.
//
// The predicate below is intentionally `< -1`/`> 1`, not the `< 1`
// found in the walked-from source: a left-heavy node has a *negative*
// balance, and the asymmetric original predicate silently treated
// every left-heavy node as needing a right-left rotation.
func (t *mergeTree) rebalance(p *cursor) *cursor {
	switch {
	case p.balance() > 1:
		r := p.higherChild
		if r.balance() < 0 {
			t.rotateRight(r)
		}
		return t.rotateLeft(p)
	case p.balance() < -1:
		l := p.lowerChild
		if l.balance() > 0 {
			t.rotateLeft(l)
		}
		return t.rotateRight(p)
	default:
		return p
	}
}

// insert adds n, a detached leaf cursor, into the tree in key order and
// rebalances every ancestor on the path back to the root.
func (t *mergeTree) insert(n *cursor) {
	n.parent, n.lowerChild, n.higherChild, n.height = nil, nil, nil, 1

	if t.root == nil {
		t.root = n
		return
	}

	cur := t.root
	for {
		if compareCursors(n, cur) < 0 {
			if cur.lowerChild == nil {
				cur.linkChild(n, true)
				break
			}
			cur = cur.lowerChild
		} else {
			if cur.higherChild == nil {
				cur.linkChild(n, false)
				break
			}
			cur = cur.higherChild
		}
	}

	t.rebalanceUpward(n.parent)
}

// rebalanceUpward walks from start to the root, recomputing heights and
// rotating every node that has drifted out of AVL balance. Used after
// both insert and remove, since both can require a chain of rotations
// all the way to the root (unlike insert alone, a single rotation does
// not guarantee the rest of the path is already balanced).
func (t *mergeTree) rebalanceUpward(start *cursor) {
	for n := start; n != nil; {
		parent := n.parent
		n.recalcHeight()
		n = t.rebalance(n)
		if parent == nil {
			n = nil
		} else {
			n = parent
		}
	}
}

// detachLeftmost removes and returns the leftmost descendant of n,
// re-linking n's subtree in its place, and reports the node from which
// rebalancing must resume (the detached node's former parent).
//
// This replaces the walked-from source's `getSuccessor(IndexWalker**
// parentPointer, bool* shallower)` pointer-to-pointer idiom: that
// approach rewrites the caller's own child slot through a double
// pointer while threading a "did we get shallower" flag back through
// every frame. Recursing down to the leftmost node and splicing it out
// directly is the textbook AVL delete step and needs neither trick.
func detachLeftmost(n *cursor) (leftmost, rebalanceFrom *cursor) {
	if n.lowerChild == nil {
		rebalanceFrom = n.parent
		if n.parent != nil {
			if n.parent.lowerChild == n {
				n.parent.linkChild(n.higherChild, true)
			} else {
				n.parent.linkChild(n.higherChild, false)
			}
		}
		n.parent, n.lowerChild, n.higherChild, n.height = nil, nil, nil, 0
		return n, rebalanceFrom
	}
	return detachLeftmost(n.lowerChild)
}

// remove deletes n from the tree and rebalances from the point of
// structural change back to the root. n must currently be in the tree.
func (t *mergeTree) remove(n *cursor) {
	switch {
	case n.lowerChild == nil && n.higherChild == nil:
		rebalanceFrom := n.parent
		t.replaceInParent(n, nil)
		n.parent = nil
		t.rebalanceUpward(rebalanceFrom)

	case n.lowerChild == nil || n.higherChild == nil:
		child := n.lowerChild
		if child == nil {
			child = n.higherChild
		}
		t.replaceInParent(n, child)
		rebalanceFrom := child
		n.parent, n.lowerChild, n.higherChild, n.height = nil, nil, nil, 0
		t.rebalanceUpward(rebalanceFrom)

	default:
		// Two children: splice in the in-order successor (the
		// leftmost node of the right subtree) in n's place.
		succ, rebalanceFrom := detachLeftmost(n.higherChild)
		if rebalanceFrom == n {
			// The successor was n.higherChild itself; its removal
			// already rewired n.higherChild, so resume from succ.
			rebalanceFrom = succ
		}
		t.replaceInParent(n, succ)
		succ.linkChild(n.lowerChild, true)
		succ.linkChild(n.higherChild, false)
		n.parent, n.lowerChild, n.higherChild, n.height = nil, nil, nil, 0
		succ.recalcHeight()
		t.rebalanceUpward(rebalanceFrom)
	}
}
