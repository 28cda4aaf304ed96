// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"sync"
	"time"
)

// scanInfo is one entry in the admin surface's in-flight scan listing.
type scanInfo struct {
	ID            uint64    `json:"id"`
	OpenedAt      time.Time `json:"opened_at"`
	Ranges        int       `json:"ranges"`
	LockForUpdate bool      `json:"lock_for_update"`
}

// scanRegistry tracks every scan currently open in this process, for
// the admin surface's GET /scans listing. It does not wrap Scan itself;
// callers register and unregister around their own Open/Close calls.
type scanRegistry struct {
	mu   sync.Mutex
	next uint64
	open map[uint64]scanInfo
}

func newScanRegistry() *scanRegistry {
	return &scanRegistry{open: make(map[uint64]scanInfo)}
}

// track records a newly opened scan and returns the id to pass to untrack.
func (r *scanRegistry) track(ranges int, lockForUpdate bool) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := r.next
	r.open[id] = scanInfo{ID: id, OpenedAt: time.Now(), Ranges: ranges, LockForUpdate: lockForUpdate}
	return id
}

func (r *scanRegistry) untrack(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, id)
}

// list returns a snapshot of every currently open scan.
func (r *scanRegistry) list() []scanInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scanInfo, 0, len(r.open))
	for _, info := range r.open {
		out = append(out, info)
	}
	return out
}
