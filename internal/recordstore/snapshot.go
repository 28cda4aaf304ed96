// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package recordstore

import "github.com/scoutdb/scoutdb/internal/txn"

// Snapshot adapts a *txn.Txn to scanengine.Snapshot, additionally
// exposing the owner token SQLResolver.FetchForUpdate attributes held
// locks to.
type Snapshot struct {
	t *txn.Txn
}

// Wrap adapts t for use as the snap argument to scanengine.ScanDriver.Open.
func Wrap(t *txn.Txn) *Snapshot {
	return &Snapshot{t: t}
}

func (s *Snapshot) Sees(commitSeq uint64) bool {
	return s.t.Sees(commitSeq)
}

func (s *Snapshot) Owner() uint64 {
	return s.t.ID()
}
