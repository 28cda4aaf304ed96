// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/scoutdb/scoutdb/internal/lockmgr"
	"github.com/scoutdb/scoutdb/internal/repository"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/scoutdb/scoutdb/pkg/indexkey"
	"github.com/scoutdb/scoutdb/pkg/log"
	"github.com/scoutdb/scoutdb/pkg/lrucache"
)

// versionCacheTTL bounds how stale a cached version list may be: a
// write committed less than this long ago may not yet be visible to a
// scan that would otherwise see it, trading a small, bounded
// visibility delay for avoiding a repeat query for hot rows scanned by
// more than one stream in the same merge.
const versionCacheTTL = 2 * time.Second

// MakeKey builds the ordering key a resolved record is reinserted
// under: the row's current key bytes paired with its record id.
func MakeKey(keyBytes []byte, recordID int64) indexkey.Key {
	return indexkey.Key{Bytes: keyBytes, RecordID: recordID}
}

// owned is satisfied by any scanengine.Snapshot that also carries a
// lock-manager owner token, so FetchForUpdate can attribute a held
// lock to the caller's transaction.
type owned interface {
	Owner() uint64
}

// SQLResolver is the concrete scanengine.Resolver: it resolves
// IndexEntry values against internal/repository's record_version
// table and, for FetchForUpdate, serializes access through
// internal/lockmgr.
type SQLResolver struct {
	repo  *repository.RecordRepository
	locks *lockmgr.Manager
	cache *lrucache.Cache
}

// NewSQLResolver builds a resolver over repo, with its own lock table
// and a cache of resolved version lists sized by
// repository.GetConfig().CacheSize.
func NewSQLResolver(repo *repository.RecordRepository) *SQLResolver {
	return &SQLResolver{
		repo:  repo,
		locks: lockmgr.New(),
		cache: lrucache.New(repository.GetConfig().CacheSize),
	}
}

// Fetch resolves entry under snap's visibility, without taking a lock.
func (s *SQLResolver) Fetch(ctx context.Context, entry scanengine.IndexEntry, snap scanengine.Snapshot) (*scanengine.Record, error) {
	return s.resolve(ctx, entry, snap, nil)
}

// FetchForUpdate behaves like Fetch but first takes the row lock,
// honoring policy when it is already held by another owner. The lock
// is released when the returned Record's refcount drops to zero.
func (s *SQLResolver) FetchForUpdate(ctx context.Context, entry scanengine.IndexEntry, snap scanengine.Snapshot, policy scanengine.LockPolicy) (*scanengine.Record, error) {
	owner := ownerOf(snap)

	switch policy {
	case scanengine.LockPolicyWait:
		if err := s.locks.Lock(ctx, entry.RecordID, owner); err != nil {
			if err == lockmgr.ErrDeadlock {
				return nil, scanengine.NewError("fetchforupdate", scanengine.Deadlock, err)
			}
			return nil, scanengine.NewError("fetchforupdate", scanengine.StorageError, err)
		}
	default: // LockPolicySkip, LockPolicyFail: never block
		if !s.locks.TryLock(entry.RecordID, owner) {
			return nil, scanengine.NewError("fetchforupdate", scanengine.LockDenied, nil)
		}
	}

	release := func(*scanengine.Record) {
		s.locks.Unlock(entry.RecordID, owner)
	}

	rec, err := s.resolve(ctx, entry, snap, release)
	if err != nil {
		// The entry turned out stale or invisible: there is no Record
		// to carry the unlock, so release the lock here instead.
		s.locks.Unlock(entry.RecordID, owner)
		return nil, err
	}
	return rec, nil
}

func (s *SQLResolver) resolve(ctx context.Context, entry scanengine.IndexEntry, snap scanengine.Snapshot, release func(*scanengine.Record)) (*scanengine.Record, error) {
	versions, err := s.fetchVersionsCached(ctx, entry.RecordID)
	if err != nil {
		return nil, scanengine.NewError("resolve", scanengine.StorageError, err)
	}

	var chosen *repository.VersionRow
	for i := range versions {
		if snap.Sees(versions[i].CommitSeq) {
			chosen = &versions[i]
			break
		}
	}
	if chosen == nil {
		return nil, scanengine.NewError("resolve", scanengine.NotFound, nil)
	}
	if !bytes.Equal(chosen.KeyBytes, entry.Key.Bytes) {
		return nil, scanengine.NewError("resolve", scanengine.VersionMismatch, nil)
	}

	columns := map[string]any{}
	if len(chosen.Columns) > 0 {
		if err := json.Unmarshal(chosen.Columns, &columns); err != nil {
			log.Errorf("recordstore: record %d: corrupt columns blob: %v", entry.RecordID, err)
			return nil, scanengine.NewError("resolve", scanengine.Corruption, err)
		}
	}

	key := MakeKey(chosen.KeyBytes, entry.RecordID)
	if chosen.Deleted {
		return scanengine.NewDeletedRecord(key, columns, release), nil
	}
	return scanengine.NewRecord(key, columns, release), nil
}

// fetchVersionsCached returns recordID's version history, newest
// first, coalescing concurrent lookups of the same hot row through
// pkg/lrucache instead of issuing one query per caller.
func (s *SQLResolver) fetchVersionsCached(ctx context.Context, recordID int64) ([]repository.VersionRow, error) {
	var fetchErr error
	key := fmt.Sprintf("versions:%d", recordID)

	cached := s.cache.Get(key, func() (interface{}, time.Duration, int) {
		versions, err := s.repo.FetchVersions(ctx, recordID)
		if err != nil {
			fetchErr = err
			return []repository.VersionRow(nil), 0, 0
		}

		size := 0
		for _, v := range versions {
			size += len(v.Columns) + len(v.KeyBytes)
		}
		return versions, versionCacheTTL, size
	})
	if fetchErr != nil {
		return nil, fetchErr
	}
	return cached.([]repository.VersionRow), nil
}

func ownerOf(snap scanengine.Snapshot) uint64 {
	if o, ok := snap.(owned); ok {
		return o.Owner()
	}
	return 0
}
