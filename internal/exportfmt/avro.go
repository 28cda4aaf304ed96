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

	"github.com/linkedin/goavro/v2"
	"github.com/scoutdb/scoutdb/internal/scanengine"
)

// recordSchema is fixed rather than inferred per export: a record's
// Columns map is arbitrary and caller-defined, so it travels as an
// opaque JSON blob instead of being flattened into per-column Avro
// fields the way the teacher's metric-specific Avro schema does for
// its known cluster/node/metric hierarchy.
const recordSchema = `{
	"type": "record",
	"name": "ScoutRecord",
	"fields": [
		{"name": "key", "type": "bytes"},
		{"name": "record_id", "type": "long"},
		{"name": "columns", "type": "string"}
	]
}`

// AvroWriter streams Records into an Avro object container file.
type AvroWriter struct {
	ocf *goavro.OCFWriter
}

// NewAvroWriter opens an Avro object container on w, deflate-compressed
// the same way the teacher's checkpoint writer does.
func NewAvroWriter(w io.Writer) (*AvroWriter, error) {
	codec, err := goavro.NewCodec(recordSchema)
	if err != nil {
		return nil, fmt.Errorf("exportfmt: building avro codec: %w", err)
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("exportfmt: opening avro writer: %w", err)
	}
	return &AvroWriter{ocf: ocf}, nil
}

// WriteScan drains scan to completion, appending one Avro record per
// yielded Record, and returns the number of records written. It does
// not close scan; the caller retains that responsibility.
func WriteScan(ctx context.Context, scan *scanengine.Scan, w *AvroWriter, lockForUpdate bool) (int64, error) {
	var n int64
	for {
		rec, err := scan.Next(ctx, lockForUpdate)
		if err != nil {
			if scanengine.IsExhausted(err) {
				return n, nil
			}
			return n, fmt.Errorf("exportfmt: scanning record %d: %w", n, err)
		}

		columns, err := json.Marshal(rec.Columns)
		if err != nil {
			rec.Release()
			return n, fmt.Errorf("exportfmt: marshaling columns for record %d: %w", rec.Key.RecordID, err)
		}

		row := map[string]any{
			"key":       rec.Key.Bytes,
			"record_id": rec.Key.RecordID,
			"columns":   string(columns),
		}
		rec.Release()

		if err := w.ocf.Append([]map[string]any{row}); err != nil {
			return n, fmt.Errorf("exportfmt: appending record %d to avro: %w", row["record_id"], err)
		}
		n++
	}
}
