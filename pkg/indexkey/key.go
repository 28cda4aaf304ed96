// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package indexkey defines the total order that the merge engine relies
// on to interleave several index walkers into one ascending stream.
package indexkey

// Key is the encoded form of one index entry: the indexed column bytes
// plus the row identifier that disambiguates entries with equal bytes.
type Key struct {
	Bytes    []byte
	RecordID int64
}

// Compare implements the three-step order the merge tree depends on:
// byte-wise prefix comparison, then length, then RecordID. It never
// allocates and is the only comparator the merge is allowed to use —
// mixing comparators within one merge would break the AVL invariant.
func Compare(a, b Key) int {
	n := len(a.Bytes)
	if len(b.Bytes) < n {
		n = len(b.Bytes)
	}

	for i := 0; i < n; i++ {
		if a.Bytes[i] != b.Bytes[i] {
			if a.Bytes[i] < b.Bytes[i] {
				return -1
			}
			return 1
		}
	}

	if len(a.Bytes) != len(b.Bytes) {
		if len(a.Bytes) < len(b.Bytes) {
			return -1
		}
		return 1
	}

	switch {
	case a.RecordID < b.RecordID:
		return -1
	case a.RecordID > b.RecordID:
		return 1
	default:
		return 0
	}
}
