// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var (
	recordRepoOnce     sync.Once
	recordRepoInstance *RecordRepository
)

// RecordRepository owns the database handle backing every index and
// record table access: PageIterator range scans, and (via
// internal/recordstore) row fetches and version writes.
type RecordRepository struct {
	DB *sqlx.DB

	stmtCache *sq.StmtCache
}

// GetRecordRepository returns the process-wide RecordRepository,
// initializing it from the already-Connect-ed database on first call.
func GetRecordRepository() *RecordRepository {
	recordRepoOnce.Do(func() {
		db := GetConnection()
		recordRepoInstance = &RecordRepository{
			DB:        db.DB,
			stmtCache: sq.NewStmtCache(db.DB),
		}
	})

	return recordRepoInstance
}
