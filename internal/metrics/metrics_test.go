// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/scoutdb/scoutdb/pkg/indexkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshot sees everything; tests here care about counting, not
// MVCC visibility.
type fakeSnapshot struct{}

func (fakeSnapshot) Sees(uint64) bool { return true }

// fakePageSource replays a fixed slice of entries, then reports Exhausted.
type fakePageSource struct {
	entries []scanengine.IndexEntry
	pos     int
}

func newFakePageSource(entries ...scanengine.IndexEntry) *fakePageSource {
	return &fakePageSource{entries: entries}
}

func (s *fakePageSource) Next(context.Context) (scanengine.IndexEntry, error) {
	if s.pos >= len(s.entries) {
		return scanengine.IndexEntry{}, scanengine.NewError("next", scanengine.Exhausted, nil)
	}
	e := s.entries[s.pos]
	s.pos++
	return e, nil
}

func (s *fakePageSource) Close() error { return nil }

// fakeResolver resolves every entry into a live Record carrying no columns.
type fakeResolver struct {
	rows map[int64]indexkey.Key
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{rows: map[int64]indexkey.Key{}}
}

func (r *fakeResolver) put(id int64, keyBytes string) {
	r.rows[id] = indexkey.Key{Bytes: []byte(keyBytes), RecordID: id}
}

func (r *fakeResolver) Fetch(_ context.Context, entry scanengine.IndexEntry, _ scanengine.Snapshot) (*scanengine.Record, error) {
	key, ok := r.rows[entry.RecordID]
	if !ok {
		return nil, scanengine.NewError("fetch", scanengine.NotFound, nil)
	}
	return scanengine.NewRecord(key, nil, nil), nil
}

func (r *fakeResolver) FetchForUpdate(ctx context.Context, entry scanengine.IndexEntry, snap scanengine.Snapshot, _ scanengine.LockPolicy) (*scanengine.Record, error) {
	return r.Fetch(ctx, entry, snap)
}

func entryFor(keyBytes string, id int64) scanengine.IndexEntry {
	return scanengine.IndexEntry{Key: indexkey.Key{Bytes: []byte(keyBytes), RecordID: id}, RecordID: id}
}

func TestInitWiresSkipAndRotationCountersToScanEngineHooks(t *testing.T) {
	t.Cleanup(func() { scanengine.RegisterHooks(nil, nil) })
	Init()

	skipsByReason.Reset()
	beforeRotations := testutil.ToFloat64(rotationsTotal)

	resolver := newFakeResolver()
	resolver.put(2, "b") // record 1 is deliberately missing, forcing a NotFound skip

	src := newFakePageSource(entryFor("a", 1), entryFor("b", 2))
	driver := scanengine.NewScanDriver(resolver)
	scan, err := driver.Open(context.Background(), []scanengine.StreamSpec{{Source: src, Range: scanengine.IndexRange{}}}, fakeSnapshot{}, scanengine.Flags{}, false)
	require.NoError(t, err)
	defer scan.Close()

	rec, err := scan.Next(context.Background(), false)
	require.NoError(t, err)
	rec.Release()

	assert.Equal(t, float64(1), testutil.ToFloat64(skipsByReason.WithLabelValues(scanengine.NotFound.String())))
	assert.GreaterOrEqual(t, testutil.ToFloat64(rotationsTotal), beforeRotations)
}

func TestHandlerServesPrometheusExposition(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "scoutdb_scan_rows_yielded_total")
}

func TestInstrumentedDriverCountsOpenAndRows(t *testing.T) {
	resolver := newFakeResolver()
	resolver.put(1, "a")
	resolver.put(2, "b")

	driver := scanengine.NewScanDriver(resolver)
	instrumented := Wrap(driver)

	src := newFakePageSource(entryFor("a", 1), entryFor("b", 2))
	before := testutil.ToFloat64(rowsYielded)

	ctx := context.Background()
	scan, err := instrumented.Open(ctx, []scanengine.StreamSpec{{Source: src, Range: scanengine.IndexRange{}}}, fakeSnapshot{}, scanengine.Flags{}, false)
	require.NoError(t, err)

	count := 0
	for {
		rec, err := scan.Next(ctx, false)
		if err != nil {
			require.True(t, scanengine.IsExhausted(err))
			break
		}
		count++
		rec.Release()
	}
	require.NoError(t, scan.Close())

	assert.Equal(t, 2, count)
	assert.Equal(t, before+2, testutil.ToFloat64(rowsYielded))
}
