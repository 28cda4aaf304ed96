// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package notify publishes scan lifecycle events for downstream
// replication readers, on top of the shared pkg/nats client.
package notify

import (
	"encoding/json"
	"time"

	"github.com/scoutdb/scoutdb/pkg/log"
	"github.com/scoutdb/scoutdb/pkg/nats"
)

// Subject names used for scan lifecycle events. Readers subscribe to
// these directly via the shared nats.Client.
const (
	SubjectScanOpened  = "scoutdb.scan.opened"
	SubjectScanClosed  = "scoutdb.scan.closed"
	SubjectMaintenance = "scoutdb.scan.maintenance"
)

// ScanOpenedEvent announces that a scan started walking a set of index
// ranges, so replication readers can track outstanding long-lived scans.
type ScanOpenedEvent struct {
	ScanID   string    `json:"scan_id"`
	Ranges   int       `json:"ranges"`
	OpenedAt time.Time `json:"opened_at"`
	LockScan bool      `json:"lock_scan"`
}

// ScanClosedEvent announces that a scan finished, successfully or not.
type ScanClosedEvent struct {
	ScanID      string `json:"scan_id"`
	RecordsRead int64  `json:"records_read"`
	Err         string `json:"error,omitempty"`
}

// MaintenanceEvent reports the outcome of one periodic maintenance scan.
type MaintenanceEvent struct {
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
	EntriesWalked int64     `json:"entries_walked"`
	StaleEntries  int64     `json:"stale_entries"`
	Err           string    `json:"error,omitempty"`
}

func publish(subject string, v any) {
	client := nats.GetClient()
	if client == nil || !client.IsConnected() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("notify: failed to marshal %s event: %v", subject, err)
		return
	}

	if err := client.Publish(subject, data); err != nil {
		log.Warnf("notify: failed to publish %s event: %v", subject, err)
	}
}

// ScanOpened publishes a ScanOpenedEvent. A no-op if NATS is not
// configured or not connected, matching the ambient client's own
// tolerance of a missing broker.
func ScanOpened(ev ScanOpenedEvent) { publish(SubjectScanOpened, ev) }

// ScanClosed publishes a ScanClosedEvent.
func ScanClosed(ev ScanClosedEvent) { publish(SubjectScanClosed, ev) }

// Maintenance publishes a MaintenanceEvent.
func Maintenance(ev MaintenanceEvent) { publish(SubjectMaintenance, ev) }
