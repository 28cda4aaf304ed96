// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package recordstore is the concrete scanengine.Resolver: it turns an
// IndexEntry into a visible Record by reading record_version rows
// under MVCC snapshot rules, optionally taking the row lock through
// internal/lockmgr first.
package recordstore
