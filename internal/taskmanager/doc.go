// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package taskmanager schedules the periodic background maintenance
// scan: a full sweep of the record store's index ranges used to find
// and report stale index entries (dangling NotFound/VersionMismatch
// hits a normal foreground scan would otherwise just skip silently).
//
// It wraps go-co-op/gocron the same way the background job services it
// is descended from did: one gocron.Scheduler, one DurationJob per
// registered task, config-driven intervals decoded from a raw JSON
// block.
package taskmanager
