// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"errors"
	"fmt"
)

// Kind classifies a ScanError. Exhausted, NotFound, VersionMismatch and
// LockDenied are recoverable within the merge's skip loop; the rest are
// fatal and propagate to the caller of Next.
type Kind int

const (
	// Exhausted means the cursor's range has no more entries.
	Exhausted Kind = iota
	// NotFound means the resolver could not locate the record a key
	// pointed at; the entry is stale and is skipped.
	NotFound
	// VersionMismatch means the resolved record's recomputed key no
	// longer matches the on-index key bytes; the entry is skipped.
	VersionMismatch
	// LockDenied means FetchForUpdate could not acquire the row lock
	// under the configured LockPolicy; handling depends on Flags.
	LockDenied
	// Deadlock is fatal: the lock manager detected a cycle.
	Deadlock
	// StorageError is fatal: the underlying store returned an error
	// unrelated to visibility or locking.
	StorageError
	// Corruption is fatal: on-disk structures violate basic invariants.
	Corruption
	// InvariantViolation is fatal: an internal invariant of the merge
	// tree itself was violated. Should never happen; indicates a bug.
	InvariantViolation
)

func (k Kind) String() string {
	switch k {
	case Exhausted:
		return "exhausted"
	case NotFound:
		return "not_found"
	case VersionMismatch:
		return "version_mismatch"
	case LockDenied:
		return "lock_denied"
	case Deadlock:
		return "deadlock"
	case StorageError:
		return "storage_error"
	case Corruption:
		return "corruption"
	case InvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind must abort the scan instead
// of being swallowed by the cursor's internal skip loop.
func (k Kind) Fatal() bool {
	return k >= Deadlock
}

// ScanError is the error type returned by cursor and walker operations.
type ScanError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ScanError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scanengine: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("scanengine: %s: %s", e.Op, e.Kind)
}

func (e *ScanError) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, err error) *ScanError {
	return &ScanError{Op: op, Kind: kind, Err: err}
}

// NewError builds a *ScanError for use by Resolver and PageSource
// implementations outside this package (e.g. a SQL-backed resolver
// reporting NotFound or VersionMismatch).
func NewError(op string, kind Kind, err error) *ScanError {
	return newErr(op, kind, err)
}

// KindOf extracts the Kind of err if it is (or wraps) a *ScanError.
func KindOf(err error) (Kind, bool) {
	var se *ScanError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// IsExhausted reports whether err signals a cursor ran out of entries.
func IsExhausted(err error) bool {
	k, ok := KindOf(err)
	return ok && k == Exhausted
}
