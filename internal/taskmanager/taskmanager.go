// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package taskmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/scoutdb/scoutdb/internal/notify"
	"github.com/scoutdb/scoutdb/pkg/log"
	"github.com/go-co-op/gocron/v2"
)

// Config configures the maintenance scheduler's timing.
type Config struct {
	// MaintenanceScanInterval is how often the maintenance scan runs,
	// e.g. "15m". Defaults to DefaultMaintenanceInterval if empty.
	MaintenanceScanInterval string `json:"maintenance-scan-interval"`
}

// DefaultMaintenanceInterval is used when Config.MaintenanceScanInterval
// is unset.
const DefaultMaintenanceInterval = 15 * time.Minute

// Keys holds the configured scheduler timing, decoded by Start.
var Keys Config

// MaintenanceFunc runs one maintenance scan pass and reports how many
// index entries it walked and how many it found stale.
type MaintenanceFunc func(ctx context.Context) (entriesWalked, staleEntries int64, err error)

var scheduler gocron.Scheduler

// Start decodes cronCfg into Keys, builds the gocron scheduler, and
// registers the maintenance scan task against run. It does not block;
// call Shutdown to stop the scheduler.
func Start(cronCfg json.RawMessage, run MaintenanceFunc) error {
	if cronCfg != nil {
		dec := json.NewDecoder(bytes.NewReader(cronCfg))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&Keys); err != nil {
			log.Errorf("taskmanager: error decoding cron config: %v", err)
		}
	}

	interval := DefaultMaintenanceInterval
	if Keys.MaintenanceScanInterval != "" {
		parsed, err := time.ParseDuration(Keys.MaintenanceScanInterval)
		if err != nil {
			log.Warnf("taskmanager: could not parse maintenance-scan-interval %q, using default: %v",
				Keys.MaintenanceScanInterval, err)
		} else {
			interval = parsed
		}
	}

	var err error
	scheduler, err = gocron.NewScheduler()
	if err != nil {
		return err
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { runMaintenance(run) }),
	); err != nil {
		return err
	}

	log.Infof("taskmanager: maintenance scan scheduled every %s", interval)
	scheduler.Start()
	return nil
}

func runMaintenance(run MaintenanceFunc) {
	started := time.Now()
	ctx := context.Background()

	walked, stale, err := run(ctx)
	ev := notify.MaintenanceEvent{
		StartedAt:     started,
		Duration:      time.Since(started).String(),
		EntriesWalked: walked,
		StaleEntries:  stale,
	}
	if err != nil {
		log.Errorf("taskmanager: maintenance scan failed: %v", err)
		ev.Err = err.Error()
	} else {
		log.Infof("taskmanager: maintenance scan walked %d entries, found %d stale", walked, stale)
	}
	notify.Maintenance(ev)
}

// Shutdown stops the scheduler. Safe to call if Start was never called.
func Shutdown() error {
	if scheduler == nil {
		return nil
	}
	return scheduler.Shutdown()
}
