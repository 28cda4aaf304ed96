// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"fmt"

	"github.com/scoutdb/scoutdb/internal/recordstore"
	"github.com/scoutdb/scoutdb/internal/repository"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/scoutdb/scoutdb/internal/txn"
)

// runMaintenanceScan walks every configured index once under a fresh
// read-only snapshot, resolving each entry directly against resolver
// rather than through a Scan's merge/skip loop, so a stale entry is
// counted instead of being silently dropped. It satisfies
// taskmanager.MaintenanceFunc.
func runMaintenanceScan(repo *repository.RecordRepository, resolver scanengine.Resolver, indexes []string) func(ctx context.Context) (int64, int64, error) {
	return func(ctx context.Context) (entriesWalked, staleEntries int64, err error) {
		snap := recordstore.Wrap(txn.Begin())

		for _, indexName := range indexes {
			iter := repo.OpenPageIterator(indexName, scanengine.IndexRange{}, true, false)
			for {
				entry, nextErr := iter.Next(ctx)
				if nextErr != nil {
					if scanengine.IsExhausted(nextErr) {
						break
					}
					iter.Close()
					return entriesWalked, staleEntries, fmt.Errorf("maintenance: walking index %q: %w", indexName, nextErr)
				}

				entriesWalked++
				rec, fetchErr := resolver.Fetch(ctx, entry, snap)
				if fetchErr != nil {
					kind, ok := scanengine.KindOf(fetchErr)
					if ok && (kind == scanengine.NotFound || kind == scanengine.VersionMismatch) {
						staleEntries++
						continue
					}
					iter.Close()
					return entriesWalked, staleEntries, fmt.Errorf("maintenance: resolving entry in index %q: %w", indexName, fetchErr)
				}
				rec.Release()
			}
			iter.Close()
		}

		return entriesWalked, staleEntries, nil
	}
}
