// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/scoutdb/scoutdb/internal/authz"
	"github.com/scoutdb/scoutdb/internal/exportfmt"
	"github.com/scoutdb/scoutdb/internal/metrics"
	"github.com/scoutdb/scoutdb/internal/recordstore"
	"github.com/scoutdb/scoutdb/internal/repository"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/scoutdb/scoutdb/internal/txn"
	"github.com/scoutdb/scoutdb/pkg/log"
)

// runOneShotScan opens a single scan over indexName under a fresh
// snapshot, gates it through authz if lockForUpdate was requested, and
// streams its output to out in format ("json", "avro" or
// "line-protocol"). It returns once the scan is exhausted.
func runOneShotScan(driver *metrics.InstrumentedDriver, repo *repository.RecordRepository, reg *scanRegistry, indexName, format string, lockForUpdate bool, out io.Writer) error {
	principal := authz.Principal{Subject: "cli"}
	if role, ok := authz.ParseRole(flagRole); ok {
		principal.Roles = []authz.Role{role}
	}

	if err := authz.Gate(principal, lockForUpdate); err != nil {
		return fmt.Errorf("oneshot: %w", err)
	}

	flags := scanengine.Flags{SkipDeleted: true}
	ctx := context.Background()
	snap := recordstore.Wrap(txn.Begin())
	src := repo.OpenPageIterator(indexName, scanengine.IndexRange{}, true, false)
	specs := []scanengine.StreamSpec{{Source: src, Range: scanengine.IndexRange{}}}

	scan, err := driver.Open(ctx, specs, snap, flags, lockForUpdate)
	if err != nil {
		return fmt.Errorf("oneshot: opening scan of index %q: %w", indexName, err)
	}
	id := reg.track(len(specs), lockForUpdate)
	defer func() {
		reg.untrack(id)
		if err := scan.Close(); err != nil {
			log.Errorf("oneshot: closing scan: %v", err)
		}
	}()

	switch format {
	case "avro":
		w, err := exportfmt.NewAvroWriter(out)
		if err != nil {
			return err
		}
		n, err := exportfmt.WriteScan(ctx, scan.Unwrap(), w, lockForUpdate)
		log.Infof("oneshot: wrote %d avro records from index %q", n, indexName)
		return err
	case "line-protocol":
		n, err := exportfmt.WriteScanLineProtocol(ctx, scan.Unwrap(), out, lockForUpdate)
		log.Infof("oneshot: wrote %d line-protocol points from index %q", n, indexName)
		return err
	case "json":
		return writeScanJSON(ctx, scan, out, lockForUpdate)
	default:
		return fmt.Errorf("oneshot: unknown export format %q", format)
	}
}

// writeScanJSON drains scan, writing one JSON object per line.
func writeScanJSON(ctx context.Context, scan *metrics.InstrumentedScan, out io.Writer, lockForUpdate bool) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	enc := json.NewEncoder(w)
	var n int64
	for {
		rec, err := scan.Next(ctx, lockForUpdate)
		if err != nil {
			if scanengine.IsExhausted(err) {
				log.Infof("oneshot: wrote %d json records", n)
				return nil
			}
			return fmt.Errorf("oneshot: scanning record %d: %w", n, err)
		}

		row := struct {
			RecordID int64          `json:"record_id"`
			Columns  map[string]any `json:"columns"`
		}{RecordID: rec.Key.RecordID, Columns: rec.Columns}
		rec.Release()

		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("oneshot: encoding record %d: %w", n, err)
		}
		n++
	}
}
