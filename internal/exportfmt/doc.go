// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package exportfmt streams a scanengine.Scan into one of two bulk
// export encodings for offline backup or replication readers: an Avro
// object container file, or InfluxDB line-protocol records.
package exportfmt
