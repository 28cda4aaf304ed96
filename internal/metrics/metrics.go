// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes Prometheus collectors for the scan engine:
// scan duration, rows yielded, skipped-entry reasons and AVL rotation
// counts. It wires itself into internal/scanengine through
// scanengine.RegisterHooks rather than that package depending on
// Prometheus directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scoutdb/scoutdb/internal/scanengine"
)

var (
	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scoutdb",
		Subsystem: "scan",
		Name:      "duration_seconds",
		Help:      "Wall-clock duration of a scan from Open to Close.",
		Buckets:   prometheus.DefBuckets,
	})

	rowsYielded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scoutdb",
		Subsystem: "scan",
		Name:      "rows_yielded_total",
		Help:      "Records returned by Scan.Next across all scans.",
	})

	scansOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scoutdb",
		Subsystem: "scan",
		Name:      "opened_total",
		Help:      "Scans opened via ScanDriver.Open.",
	})

	skipsByReason = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scoutdb",
		Subsystem: "scan",
		Name:      "skipped_entries_total",
		Help:      "Index entries skipped during a scan, by the scanengine.Kind that caused the skip.",
	}, []string{"reason"})

	rotationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scoutdb",
		Subsystem: "scan",
		Name:      "tree_rotations_total",
		Help:      "AVL rotations performed by the merge tree while rebalancing.",
	})
)

// Init installs this package's collectors as internal/scanengine's
// telemetry sink. Call once at process startup, before any Scan opens.
func Init() {
	scanengine.RegisterHooks(
		func(kind scanengine.Kind) { skipsByReason.WithLabelValues(kind.String()).Inc() },
		func() { rotationsTotal.Inc() },
	)
}

// Handler serves the collected metrics in the Prometheus exposition
// format. cmd/scoutdb serves it on its own metrics listener
// (Config.MetricsAddr), not on the admin HTTP surface.
func Handler() http.Handler {
	return promhttp.Handler()
}
