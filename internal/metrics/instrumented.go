// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"context"
	"time"

	"github.com/scoutdb/scoutdb/internal/scanengine"
)

// InstrumentedDriver wraps a scanengine.ScanDriver so every Scan it
// opens reports its wall-clock duration and yielded row count, without
// scanengine itself depending on Prometheus.
type InstrumentedDriver struct {
	driver *scanengine.ScanDriver
}

// Wrap returns an InstrumentedDriver delegating to driver.
func Wrap(driver *scanengine.ScanDriver) *InstrumentedDriver {
	return &InstrumentedDriver{driver: driver}
}

// Open behaves like scanengine.ScanDriver.Open, returning a Scan whose
// Next/Close calls are counted and timed.
func (d *InstrumentedDriver) Open(ctx context.Context, specs []scanengine.StreamSpec, snap scanengine.Snapshot, flags scanengine.Flags, lockForUpdate bool) (*InstrumentedScan, error) {
	scan, err := d.driver.Open(ctx, specs, snap, flags, lockForUpdate)
	if err != nil {
		return nil, err
	}
	scansOpened.Inc()
	return &InstrumentedScan{scan: scan, opened: time.Now()}, nil
}

// InstrumentedScan wraps a scanengine.Scan, reporting rows_yielded_total
// on every successful Next and duration_seconds when Closed.
type InstrumentedScan struct {
	scan   *scanengine.Scan
	opened time.Time
}

// Next delegates to the wrapped Scan, incrementing rowsYielded on success.
func (s *InstrumentedScan) Next(ctx context.Context, lockForUpdate bool) (*scanengine.Record, error) {
	rec, err := s.scan.Next(ctx, lockForUpdate)
	if err == nil {
		rowsYielded.Inc()
	}
	return rec, err
}

// Close delegates to the wrapped Scan and records its total duration.
func (s *InstrumentedScan) Close() error {
	scanDuration.Observe(time.Since(s.opened).Seconds())
	return s.scan.Close()
}

// Unwrap returns the wrapped *scanengine.Scan, for callers (such as
// internal/exportfmt's bulk writers) that need the concrete type
// rather than the counted Next/Close pair.
func (s *InstrumentedScan) Unwrap() *scanengine.Scan {
	return s.scan
}
