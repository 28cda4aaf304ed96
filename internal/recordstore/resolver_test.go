// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package recordstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/scoutdb/scoutdb/internal/repository"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	dbfile := filepath.Join(os.TempDir(), "scoutdb-recordstore-test.db")
	os.Remove(dbfile)
	repository.MigrateDB(dbfile)
	repository.Connect(dbfile)
}

type fakeSnapshot struct {
	visible uint64
	owner   uint64
}

func (s fakeSnapshot) Sees(commitSeq uint64) bool { return commitSeq <= s.visible }
func (s fakeSnapshot) Owner() uint64              { return s.owner }

func createTestRecord(t *testing.T, repo *repository.RecordRepository, commitSeq uint64, keyBytes, columns []byte) int64 {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	id, err := repo.CreateRecord(ctx, tx, commitSeq, keyBytes, columns)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func TestFetchResolvesLatestVisibleVersion(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	id := createTestRecord(t, repo, 5, []byte("key-a"), []byte(`{"x":1}`))

	entry := scanengine.IndexEntry{Key: MakeKey([]byte("key-a"), id), RecordID: id}
	rec, err := resolver.Fetch(context.Background(), entry, fakeSnapshot{visible: 100})
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, float64(1), rec.Columns["x"])
	assert.Equal(t, []byte("key-a"), rec.Key.Bytes)
}

func TestFetchHidesVersionsCommittedAfterSnapshot(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	id := createTestRecord(t, repo, 500, []byte("key-b"), []byte(`{}`))

	entry := scanengine.IndexEntry{Key: MakeKey([]byte("key-b"), id), RecordID: id}
	_, err := resolver.Fetch(context.Background(), entry, fakeSnapshot{visible: 1})
	require.Error(t, err)
	kind, ok := scanengine.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, scanengine.NotFound, kind)
}

func TestFetchReportsVersionMismatchWhenIndexKeyIsStale(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	id := createTestRecord(t, repo, 5, []byte("key-c"), []byte(`{}`))

	// entry.Key disagrees with the record's current key bytes, as
	// happens when a row was updated and its old index_entry wasn't
	// pruned yet.
	entry := scanengine.IndexEntry{Key: MakeKey([]byte("stale-key"), id), RecordID: id}
	_, err := resolver.Fetch(context.Background(), entry, fakeSnapshot{visible: 100})
	require.Error(t, err)
	kind, ok := scanengine.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, scanengine.VersionMismatch, kind)
}

func TestFetchResolvesTombstonedVersionAsDeletedRecord(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	ctx := context.Background()
	id := createTestRecord(t, repo, 5, []byte("key-f"), []byte(`{}`))

	tx, err := repo.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.InsertVersion(ctx, tx, id, 6, []byte("key-f"), nil, true))
	require.NoError(t, tx.Commit())

	entry := scanengine.IndexEntry{Key: MakeKey([]byte("key-f"), id), RecordID: id}
	rec, err := resolver.Fetch(ctx, entry, fakeSnapshot{visible: 100})
	require.NoError(t, err, "a tombstoned row resolves successfully, flagged Deleted, rather than NotFound")
	defer rec.Release()

	assert.True(t, rec.Deleted)
}

func TestFetchForUpdateDeniesConcurrentLockUnderSkipPolicy(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	id := createTestRecord(t, repo, 5, []byte("key-d"), []byte(`{}`))
	entry := scanengine.IndexEntry{Key: MakeKey([]byte("key-d"), id), RecordID: id}

	first, err := resolver.FetchForUpdate(context.Background(), entry, fakeSnapshot{visible: 100, owner: 1}, scanengine.LockPolicySkip)
	require.NoError(t, err)
	defer first.Release()

	_, err = resolver.FetchForUpdate(context.Background(), entry, fakeSnapshot{visible: 100, owner: 2}, scanengine.LockPolicySkip)
	require.Error(t, err)
	kind, ok := scanengine.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, scanengine.LockDenied, kind)
}

func TestFetchForUpdateReleasesLockWhenRecordReleased(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	id := createTestRecord(t, repo, 5, []byte("key-e"), []byte(`{}`))
	entry := scanengine.IndexEntry{Key: MakeKey([]byte("key-e"), id), RecordID: id}

	first, err := resolver.FetchForUpdate(context.Background(), entry, fakeSnapshot{visible: 100, owner: 1}, scanengine.LockPolicySkip)
	require.NoError(t, err)
	first.Release()

	second, err := resolver.FetchForUpdate(context.Background(), entry, fakeSnapshot{visible: 100, owner: 2}, scanengine.LockPolicySkip)
	require.NoError(t, err, "lock must be released once the first record is released")
	second.Release()
}

func TestFetchServesRepeatLookupsOfTheSameRowFromCache(t *testing.T) {
	repo := repository.GetRecordRepository()
	resolver := NewSQLResolver(repo)
	id := createTestRecord(t, repo, 5, []byte("key-f"), []byte(`{"n":1}`))
	entry := scanengine.IndexEntry{Key: MakeKey([]byte("key-f"), id), RecordID: id}

	first, err := resolver.Fetch(context.Background(), entry, fakeSnapshot{visible: 100})
	require.NoError(t, err)
	first.Release()

	cached, ok := resolver.cache.Get(fmt.Sprintf("versions:%d", id), nil).([]repository.VersionRow)
	require.True(t, ok, "first Fetch must populate the version cache")
	require.Len(t, cached, 1)

	second, err := resolver.Fetch(context.Background(), entry, fakeSnapshot{visible: 100})
	require.NoError(t, err)
	defer second.Release()
	assert.Equal(t, float64(1), second.Columns["n"])
}
