// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackAndUntrackRoundTrips(t *testing.T) {
	reg := newScanRegistry()

	id := reg.track(2, true)
	open := reg.list()
	assert.Len(t, open, 1)
	assert.Equal(t, id, open[0].ID)
	assert.Equal(t, 2, open[0].Ranges)
	assert.True(t, open[0].LockForUpdate)

	reg.untrack(id)
	assert.Empty(t, reg.list())
}

func TestTrackAssignsDistinctIDsAcrossConcurrentScans(t *testing.T) {
	reg := newScanRegistry()

	a := reg.track(1, false)
	b := reg.track(1, false)
	assert.NotEqual(t, a, b)
	assert.Len(t, reg.list(), 2)
}

func TestUntrackOfUnknownIDIsNoOp(t *testing.T) {
	reg := newScanRegistry()
	reg.untrack(999)
	assert.Empty(t, reg.list())
}
