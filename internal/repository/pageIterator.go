// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/scoutdb/scoutdb/internal/scanengine"
	"github.com/scoutdb/scoutdb/pkg/indexkey"
	"github.com/scoutdb/scoutdb/pkg/log"
)

// PageIterator walks one named index in ascending (key_bytes, record_id)
// order, fetching GetConfig().PageSize rows per round trip and handing
// them out one at a time through Next. It satisfies scanengine.PageSource.
type PageIterator struct {
	repo      *RecordRepository
	indexName string
	rng       scanengine.IndexRange

	// includeLowerBound/includeUpperBound mirror scanengine.Flags'
	// fields of the same name; OpenPageIterator's caller supplies them
	// since PageIterator itself has no access to the Flags a Scan was
	// opened with.
	includeLowerBound bool
	includeUpperBound bool

	buf []indexEntryRow
	pos int

	// lastKey/lastSeen track the keyset cursor: the (key_bytes, record_id)
	// of the last row handed out, so the next page query can resume
	// strictly after it without an OFFSET scan.
	lastKey  []byte
	lastSeen int64
	started  bool
	done     bool
}

type indexEntryRow struct {
	KeyBytes []byte `db:"key_bytes"`
	RecordID int64  `db:"record_id"`
}

// OpenPageIterator returns a PageSource walking indexName within rng.
// includeLowerBound/includeUpperBound control whether rng.Lower/rng.Upper
// are treated as inclusive or exclusive bounds, matching
// scanengine.Flags.IncludeLowerBound/IncludeUpperBound.
func (r *RecordRepository) OpenPageIterator(indexName string, rng scanengine.IndexRange, includeLowerBound, includeUpperBound bool) *PageIterator {
	return &PageIterator{repo: r, indexName: indexName, rng: rng, includeLowerBound: includeLowerBound, includeUpperBound: includeUpperBound}
}

// Next returns the next IndexEntry in the range, fetching a new page
// from index_entry whenever the buffered one is exhausted.
func (p *PageIterator) Next(ctx context.Context) (scanengine.IndexEntry, error) {
	if p.pos >= len(p.buf) {
		if p.done {
			return scanengine.IndexEntry{}, scanengine.NewError("pageiterator.next", scanengine.Exhausted, nil)
		}
		if err := p.fetchPage(ctx); err != nil {
			return scanengine.IndexEntry{}, err
		}
		if p.pos >= len(p.buf) {
			p.done = true
			return scanengine.IndexEntry{}, scanengine.NewError("pageiterator.next", scanengine.Exhausted, nil)
		}
	}

	row := p.buf[p.pos]
	p.pos++
	p.lastKey = row.KeyBytes
	p.lastSeen = row.RecordID

	return scanengine.IndexEntry{
		Key:      indexkey.Key{Bytes: row.KeyBytes, RecordID: row.RecordID},
		RecordID: row.RecordID,
	}, nil
}

func (p *PageIterator) fetchPage(ctx context.Context) error {
	q := sq.Select("key_bytes", "record_id").
		From("index_entry").
		Where(sq.Eq{"index_name": p.indexName}).
		OrderBy("key_bytes ASC", "record_id ASC").
		Limit(uint64(GetConfig().PageSize))

	if p.rng.Lower != nil {
		if p.includeLowerBound {
			q = q.Where(sq.GtOrEq{"key_bytes": p.rng.Lower.Bytes})
		} else {
			q = q.Where(sq.Gt{"key_bytes": p.rng.Lower.Bytes})
		}
	}
	if p.rng.Upper != nil {
		if p.includeUpperBound {
			q = q.Where(sq.LtOrEq{"key_bytes": p.rng.Upper.Bytes})
		} else {
			q = q.Where(sq.Lt{"key_bytes": p.rng.Upper.Bytes})
		}
	}
	if p.started {
		// Resume strictly after the last row handed out: either a
		// greater key, or the same key with a greater record id.
		q = q.Where(sq.Or{
			sq.Gt{"key_bytes": p.lastKey},
			sq.And{sq.Eq{"key_bytes": p.lastKey}, sq.Gt{"record_id": p.lastSeen}},
		})
	}

	rows, err := q.RunWith(p.repo.stmtCache).QueryContext(ctx)
	if err != nil {
		log.Errorf("PageIterator: query index %s failed: %v", p.indexName, err)
		return scanengine.NewError("pageiterator.fetchpage", scanengine.StorageError, err)
	}
	defer rows.Close()

	p.buf = p.buf[:0]
	p.pos = 0
	for rows.Next() {
		var row indexEntryRow
		if err := rows.Scan(&row.KeyBytes, &row.RecordID); err != nil {
			return scanengine.NewError("pageiterator.fetchpage", scanengine.StorageError, err)
		}
		p.buf = append(p.buf, row)
	}
	if err := rows.Err(); err != nil {
		return scanengine.NewError("pageiterator.fetchpage", scanengine.StorageError, err)
	}

	p.started = true
	if len(p.buf) < GetConfig().PageSize {
		// A short page means the range is exhausted; the next call
		// to Next will report Exhausted without another round trip.
		p.done = true
	}
	return nil
}

// Close is a no-op: PageIterator holds no resources between calls to
// Next beyond the statement cache, which is shared and owned by
// RecordRepository.
func (p *PageIterator) Close() error {
	return nil
}
