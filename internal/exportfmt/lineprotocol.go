// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package exportfmt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/scoutdb/scoutdb/internal/scanengine"
)

// measurement is the line-protocol measurement every exported record is
// written under; the record id travels as a tag so readers can group or
// filter by it the same way the teacher's decoder groups incoming
// points by cluster/node tag.
const measurement = "scout_record"

// WriteScanLineProtocol drains scan to completion, writing one
// line-protocol point per yielded Record to w, and returns the number
// of records written. It does not close scan.
//
// Columns that aren't one of line-protocol's native field types
// (float64, int64, uint64, string, bool) are JSON-encoded into a
// string field instead of being dropped, so no column is silently lost.
func WriteScanLineProtocol(ctx context.Context, scan *scanengine.Scan, w io.Writer, lockForUpdate bool) (int64, error) {
	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)

	var n int64
	for {
		rec, err := scan.Next(ctx, lockForUpdate)
		if err != nil {
			if scanengine.IsExhausted(err) {
				return n, nil
			}
			return n, fmt.Errorf("exportfmt: scanning record %d: %w", n, err)
		}

		enc.StartLine(measurement)
		enc.AddTag("record_id", strconv.FormatInt(rec.Key.RecordID, 10))

		if err := addColumnFields(&enc, rec.Columns); err != nil {
			rec.Release()
			return n, fmt.Errorf("exportfmt: record %d: %w", rec.Key.RecordID, err)
		}
		rec.Release()

		enc.EndLine(time.Now())
		if err := enc.Err(); err != nil {
			return n, fmt.Errorf("exportfmt: encoding record %d: %w", n, err)
		}

		if _, err := w.Write(enc.Bytes()); err != nil {
			return n, fmt.Errorf("exportfmt: writing record %d: %w", n, err)
		}
		enc.Reset()
		n++
	}
}

func addColumnFields(enc *lineprotocol.Encoder, columns map[string]any) error {
	if len(columns) == 0 {
		// line-protocol requires at least one field per line.
		enc.AddField("present", lineprotocol.MustNewValue(true))
		return nil
	}
	for name, v := range columns {
		val, ok := lineprotocol.NewValue(v)
		if !ok {
			blob, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
			val, ok = lineprotocol.NewValue(string(blob))
			if !ok {
				return fmt.Errorf("column %q: could not encode as a line-protocol value", name)
			}
		}
		enc.AddField(name, val)
	}
	return nil
}
