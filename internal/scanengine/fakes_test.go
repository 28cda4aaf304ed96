// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"context"

	"github.com/scoutdb/scoutdb/pkg/indexkey"
)

// fakePageSource replays a fixed, pre-sorted slice of entries.
type fakePageSource struct {
	entries []IndexEntry
	pos     int
	closed  bool
}

func newFakePageSource(entries ...IndexEntry) *fakePageSource {
	return &fakePageSource{entries: entries}
}

func (s *fakePageSource) Next(ctx context.Context) (IndexEntry, error) {
	if s.pos >= len(s.entries) {
		return IndexEntry{}, newErr("next", Exhausted, nil)
	}
	e := s.entries[s.pos]
	s.pos++
	return e, nil
}

func (s *fakePageSource) Close() error {
	s.closed = true
	return nil
}

// fakeRow is one row visible to fakeResolver.
type fakeRow struct {
	key      indexkey.Key
	columns  map[string]any
	lockable bool // whether FetchForUpdate should succeed immediately
	deleted  bool // whether fetch resolves to a tombstoned Record
}

// fakeResolver resolves entries against an in-memory row table, and
// counts outstanding Records so tests can assert P4 (no leaks).
type fakeResolver struct {
	rows      map[int64]*fakeRow
	live      int
	fetchErrs map[int64]Kind // force a specific error kind for a record id
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{rows: map[int64]*fakeRow{}, fetchErrs: map[int64]Kind{}}
}

func (r *fakeResolver) put(id int64, keyBytes string, lockable bool, cols map[string]any) {
	r.rows[id] = &fakeRow{key: indexkey.Key{Bytes: []byte(keyBytes), RecordID: id}, columns: cols, lockable: lockable}
}

// putDeleted registers a row whose current version is a tombstone: fetch
// resolves it successfully, but the returned Record carries Deleted=true.
func (r *fakeResolver) putDeleted(id int64, keyBytes string) {
	r.rows[id] = &fakeRow{key: indexkey.Key{Bytes: []byte(keyBytes), RecordID: id}, lockable: true, deleted: true}
}

func (r *fakeResolver) fetch(entry IndexEntry) (*Record, error) {
	if kind, ok := r.fetchErrs[entry.RecordID]; ok {
		return nil, newErr("fetch", kind, nil)
	}
	row, ok := r.rows[entry.RecordID]
	if !ok {
		return nil, newErr("fetch", NotFound, nil)
	}
	if indexkey.Compare(row.key, entry.Key) != 0 {
		return nil, newErr("fetch", VersionMismatch, nil)
	}
	r.live++
	release := func(*Record) { r.live-- }
	if row.deleted {
		return NewDeletedRecord(row.key, row.columns, release), nil
	}
	return NewRecord(row.key, row.columns, release), nil
}

func (r *fakeResolver) Fetch(ctx context.Context, entry IndexEntry, snap Snapshot) (*Record, error) {
	return r.fetch(entry)
}

func (r *fakeResolver) FetchForUpdate(ctx context.Context, entry IndexEntry, snap Snapshot, policy LockPolicy) (*Record, error) {
	row, ok := r.rows[entry.RecordID]
	if ok && !row.lockable && policy != LockPolicyWait {
		return nil, newErr("fetch_for_update", LockDenied, nil)
	}
	return r.fetch(entry)
}

type fakeSnapshot struct{}

func (fakeSnapshot) Sees(commitSeq uint64) bool { return true }

func entryOf(keyBytes string, id int64) IndexEntry {
	return IndexEntry{Key: indexkey.Key{Bytes: []byte(keyBytes), RecordID: id}, RecordID: id}
}
