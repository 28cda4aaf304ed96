// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/scoutdb/scoutdb/pkg/log"
)

// VersionRow is one row of record_version, as seen by the resolver.
type VersionRow struct {
	RecordID  int64  `db:"record_id"`
	CommitSeq uint64 `db:"commit_seq"`
	Columns   []byte `db:"columns"`
	KeyBytes  []byte `db:"key_bytes"`
	Deleted   bool   `db:"deleted"`
}

// FetchVersions returns every committed version of recordID, newest
// first, so a caller can pick the first one visible to its snapshot.
func (r *RecordRepository) FetchVersions(ctx context.Context, recordID int64) ([]VersionRow, error) {
	var rows []VersionRow
	query, args, err := sq.Select("record_id", "commit_seq", "columns", "key_bytes", "deleted").
		From("record_version").
		Where(sq.Eq{"record_id": recordID}).
		OrderBy("commit_seq DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	if err := r.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Errorf("FetchVersions: record %d: %v", recordID, err)
		return nil, err
	}
	return rows, nil
}

// RecordExists reports whether recordID still has a live head row.
func (r *RecordRepository) RecordExists(ctx context.Context, recordID int64) (bool, error) {
	var id int64
	err := sq.Select("id").From("record").Where(sq.Eq{"id": recordID}).
		RunWith(r.stmtCache).QueryRowContext(ctx).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InsertVersion stamps a new committed version of recordID at
// commitSeq, and advances the record's live head to it. Both writes
// happen against tx so they are atomic with the caller's other writes
// in the same transaction.
func (r *RecordRepository) InsertVersion(ctx context.Context, tx *sql.Tx, recordID int64, commitSeq uint64, keyBytes, columns []byte, deleted bool) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO record_version (record_id, commit_seq, columns, key_bytes, deleted) VALUES (?, ?, ?, ?, ?)`,
		recordID, commitSeq, columns, keyBytes, deleted); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE record SET current_version = ?, deleted = ? WHERE id = ?`,
		commitSeq, deleted, recordID); err != nil {
		return err
	}
	return nil
}

// CreateRecord inserts a new live head row and its first version,
// returning the newly assigned record id.
func (r *RecordRepository) CreateRecord(ctx context.Context, tx *sql.Tx, commitSeq uint64, keyBytes, columns []byte) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO record (current_version, deleted) VALUES (?, 0)`, commitSeq)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := r.InsertVersion(ctx, tx, id, commitSeq, keyBytes, columns, false); err != nil {
		return 0, err
	}
	return id, nil
}

// InsertIndexEntry adds one (indexName, keyBytes, recordID) tuple to
// index_entry. Stale entries left behind by an update are never
// deleted here; IndexCursor.advance skips them on read instead (see
// migrations/sqlite3/000001_init.up.sql).
func (r *RecordRepository) InsertIndexEntry(ctx context.Context, tx *sql.Tx, indexName string, keyBytes []byte, recordID int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO index_entry (index_name, key_bytes, record_id) VALUES (?, ?, ?)`,
		indexName, keyBytes, recordID)
	return err
}

// HighestCommitSeq returns the largest commit_seq recorded, for
// internal/txn.Seed to resume the commit clock after a restart.
func (r *RecordRepository) HighestCommitSeq(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(commit_seq) FROM record_version`).Scan(&seq); err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}
