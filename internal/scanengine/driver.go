// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"context"

	"github.com/scoutdb/scoutdb/pkg/log"
)

// LockPolicy controls what a cursor does when FetchForUpdate cannot
// immediately acquire a row lock. The walked-from engine hard-coded
// "skip and keep scanning"; spec.md §9 flags that as a policy decision
// rather than a fixed behavior, so it is a configurable flag here.
type LockPolicy int

const (
	// LockPolicySkip drops the locked entry from the result stream and
	// continues the scan. This is the default, matching the source.
	LockPolicySkip LockPolicy = iota
	// LockPolicyWait blocks until the lock becomes available.
	LockPolicyWait
	// LockPolicyFail surfaces LockDenied to the caller of Next instead
	// of skipping or waiting.
	LockPolicyFail
)

// Flags configures the behavior of a Scan across all of its cursors,
// for the lifetime of the Scan. lockForUpdate is deliberately not a
// member of Flags: spec.md §4.3/§4.5/§4.7 specify it as a parameter of
// advance/Next/Walker.Next, re-evaluated on every call rather than
// fixed at Open.
type Flags struct {
	// LockPolicy governs what happens when a lockForUpdate fetch's lock
	// is unavailable.
	LockPolicy LockPolicy
	// IncludeLowerBound, when true, makes a cursor's range check its
	// lower bound inclusively (key_bytes >= Lower); false makes it
	// exclusive (key_bytes > Lower). Only relevant when a StreamSpec's
	// IndexRange.Lower is non-nil.
	IncludeLowerBound bool
	// IncludeUpperBound, when true, makes a cursor's range check its
	// upper bound inclusively (key_bytes <= Upper); false (the default,
	// matching the conventional half-open [Lower, Upper) range) makes
	// it exclusive. Only relevant when IndexRange.Upper is non-nil.
	IncludeUpperBound bool
	// SkipDeleted, when true, drops a resolved record whose current
	// version is a tombstone instead of yielding it. Callers that want
	// the ordinary live-record scan behavior must set this explicitly;
	// see DESIGN.md for why the zero value does not default it on.
	SkipDeleted bool
}

// StreamSpec describes one of the index ranges a Scan should merge.
type StreamSpec struct {
	Source PageSource
	Range  IndexRange
}

// ScanDriver opens and tracks scans against a Resolver. It is the
// package's entry point, analogous to the walked-from engine's
// "open a walk over these index ranges" call.
type ScanDriver struct {
	resolver Resolver
}

// NewScanDriver builds a driver over resolver. resolver is shared
// read-only state; the driver itself holds no scan-specific state.
func NewScanDriver(resolver Resolver) *ScanDriver {
	return &ScanDriver{resolver: resolver}
}

// Open starts a new Scan merging every stream in specs under snap's
// MVCC visibility, honoring flags. lockForUpdate governs the scan's
// initial priming fetch, exactly like the lockForUpdate argument of a
// later call to (*Scan).Next; it is not stored on Flags because a
// caller may flip it on a later Next call without reopening the scan.
// The returned Scan must be Closed.
func (d *ScanDriver) Open(ctx context.Context, specs []StreamSpec, snap Snapshot, flags Flags, lockForUpdate bool) (*Scan, error) {
	w := newWalker()
	for _, spec := range specs {
		c := newCursor(spec.Source, d.resolver, snap, spec.Range, flags)
		w.insertChild(c)
	}
	if err := w.primeAll(ctx, lockForUpdate); err != nil {
		w.releaseAll()
		return nil, err
	}
	return &Scan{walker: w}, nil
}

// Scan is an open, positionable merge of one or more index ranges. Scan
// is not safe for concurrent use; callers serialize calls to Next.
type Scan struct {
	walker *Walker
	closed bool
}

// Next returns the next record in ascending merge order across every
// underlying cursor, or an Exhausted ScanError once every stream is
// drained. lockForUpdate governs the fetch used to re-prime the cursor
// that just yielded its record, so a caller may change its mind about
// locking on any call rather than being bound to what Open chose.
// The returned Record is owned by the caller and must be Released;
// Scan retains no reference to it after returning it.
func (s *Scan) Next(ctx context.Context, lockForUpdate bool) (*Record, error) {
	if s.closed {
		return nil, newErr("next", InvariantViolation, nil)
	}
	return s.walker.Next(ctx, lockForUpdate)
}

// Close releases every cursor still held open by the scan, including
// any record they are currently parked on. Safe to call more than once.
func (s *Scan) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.walker.closeAll()
	if err != nil {
		log.Errorf("scanengine: error closing scan: %v", err)
	}
	return err
}
