// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

import (
	"context"
	"testing"

	"github.com/scoutdb/scoutdb/pkg/indexkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, ctx context.Context, w *Walker, lockForUpdate bool) []string {
	var out []string
	for {
		rec, err := w.Next(ctx, lockForUpdate)
		if err != nil {
			require.True(t, IsExhausted(err), "unexpected error: %v", err)
			break
		}
		out = append(out, string(rec.Key.Bytes))
		rec.Release()
	}
	return out
}

func TestSingleCursorPassthrough(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(2, "b", true, nil)
	resolver.put(3, "c", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2), entryOf("c", 3))
	w := newWalker()
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "b", "c"}, drain(t, ctx, w, false))
	assert.Equal(t, 0, resolver.live)
	assert.False(t, src.closed, "draining a scan does not close its sources; Close does")
}

func TestTwoWayMergeIsGloballyOrdered(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	for i, k := range []string{"a", "c", "e", "b", "d", "f"} {
		resolver.put(int64(i+1), k, true, nil)
	}

	left := newFakePageSource(entryOf("a", 1), entryOf("c", 2), entryOf("e", 3))
	right := newFakePageSource(entryOf("b", 4), entryOf("d", 5), entryOf("f", 6))

	w := newWalker()
	w.insertChild(newCursor(left, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	w.insertChild(newCursor(right, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, drain(t, ctx, w, false))
	assert.Equal(t, 0, resolver.live)
}

func TestVersionMismatchIsSkippedTransparently(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	// Record 2 is referenced by a stale index entry ("bstale") but its
	// current row key is "bnew" - simulates an update that moved the
	// indexed column after the entry was written.
	resolver.put(2, "bnew", true, nil)
	resolver.put(3, "c", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("bstale", 2), entryOf("c", 3))
	w := newWalker()
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "c"}, drain(t, ctx, w, false))
	assert.Equal(t, 0, resolver.live)
}

func TestNotFoundEntryIsSkipped(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(3, "c", true, nil)
	// Record 2 was deleted after the index entry was written, before
	// the index entry itself was vacuumed.

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2), entryOf("c", 3))
	w := newWalker()
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "c"}, drain(t, ctx, w, false))
}

func TestDuplicateKeyAcrossCursorsTieBreaksAndReleasesOneCopy(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(5, "m", true, nil) // same record reachable via both ranges
	resolver.put(1, "a", true, nil)
	resolver.put(9, "z", true, nil)

	left := newFakePageSource(entryOf("a", 1), entryOf("m", 5))
	right := newFakePageSource(entryOf("m", 5), entryOf("z", 9))

	w := newWalker()
	w.insertChild(newCursor(left, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	w.insertChild(newCursor(right, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	got := drain(t, ctx, w, false)
	assert.Equal(t, []string{"a", "m", "z"}, got, "the duplicate record surfaces exactly once")
	assert.Equal(t, 0, resolver.live, "the duplicate's extra fetch was released, not leaked")
}

func TestRecordIDTieBreaksEqualIndexKeys(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(2, "dup", true, nil)
	resolver.put(1, "dup", true, nil)

	// Two different rows share identical index key bytes ("dup"), each
	// reached through a different cursor: the merge must order them by
	// RecordID rather than by which cursor happened to prime first.
	left := newFakePageSource(entryOf("dup", 2))
	right := newFakePageSource(entryOf("dup", 1))
	w := newWalker()
	w.insertChild(newCursor(left, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	w.insertChild(newCursor(right, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	var ids []int64
	for {
		rec, err := w.Next(ctx, false)
		if err != nil {
			break
		}
		ids = append(ids, rec.Key.RecordID)
		rec.Release()
	}
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestEmptyRangeYieldsNoRecords(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	src := newFakePageSource()
	w := newWalker()
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	_, err := w.Next(ctx, false)
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
}

func TestLockDeniedUnderSkipPolicySkipsEntry(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(2, "b", false, nil) // locked by another transaction
	resolver.put(3, "c", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2), entryOf("c", 3))
	w := newWalker()
	flags := Flags{LockPolicy: LockPolicySkip}
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, flags))
	require.NoError(t, w.primeAll(ctx, true))

	assert.Equal(t, []string{"a", "c"}, drain(t, ctx, w, true))
}

func TestLockDeniedUnderFailPolicySurfacesError(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(2, "b", false, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2))
	w := newWalker()
	flags := Flags{LockPolicy: LockPolicyFail}
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, flags))
	require.NoError(t, w.primeAll(ctx, true))

	_, err := w.Next(ctx, true)
	require.NoError(t, err) // "a" still resolves fine

	_, err = w.Next(ctx, true)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, LockDenied, kind)
}

func TestUpperBoundExcludesOutOfRangeEntries(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(2, "m", true, nil)
	resolver.put(3, "z", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("m", 2), entryOf("z", 3))
	w := newWalker()
	upper := indexkey.Key{Bytes: []byte("n")}
	rng := IndexRange{Upper: &upper}
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, rng, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "m"}, drain(t, ctx, w, false))
}

func TestIncludeUpperBoundMakesTheBoundaryInclusive(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(2, "n", true, nil)
	resolver.put(3, "z", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("n", 2), entryOf("z", 3))
	w := newWalker()
	upper := indexkey.Key{Bytes: []byte("n")}
	rng := IndexRange{Upper: &upper}
	flags := Flags{IncludeUpperBound: true}
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, rng, flags))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "n"}, drain(t, ctx, w, false))
}

func TestSkipDeletedDropsTombstonedRecords(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.putDeleted(2, "b")
	resolver.put(3, "c", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2), entryOf("c", 3))
	w := newWalker()
	flags := Flags{SkipDeleted: true}
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, flags))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "c"}, drain(t, ctx, w, false))
	assert.Equal(t, 0, resolver.live, "the skipped tombstone's fetch was released, not leaked")
}

func TestSkipDeletedFalseYieldsTombstonedRecords(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.putDeleted(2, "b")

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2))
	w := newWalker()
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	assert.Equal(t, []string{"a", "b"}, drain(t, ctx, w, false))
}

func TestCloseReleasesEveryHeldRecord(t *testing.T) {
	ctx := context.Background()
	resolver := newFakeResolver()
	resolver.put(1, "a", true, nil)
	resolver.put(2, "b", true, nil)

	src := newFakePageSource(entryOf("a", 1), entryOf("b", 2))
	w := newWalker()
	w.insertChild(newCursor(src, resolver, fakeSnapshot{}, IndexRange{}, Flags{}))
	require.NoError(t, w.primeAll(ctx, false))

	require.NoError(t, w.closeAll())
	assert.Equal(t, 0, resolver.live)
	assert.True(t, src.closed)
}
