// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package authz

import (
	"fmt"
)

// ErrLockScanForbidden is returned by Gate when a principal without
// RoleWriter or above requests a lockForUpdate scan.
var ErrLockScanForbidden = fmt.Errorf("authz: principal lacks the role required to take row locks")

// Gate checks that p is permitted to open or advance a scan with
// lockForUpdate set, before any PageSource or Resolver call is made.
// lockForUpdate is passed explicitly by the caller rather than read off
// scanengine.Flags, since it is a per-call argument of Open/Next, not a
// fixed property of a scan.
func Gate(p Principal, lockForUpdate bool) error {
	if lockForUpdate && !p.CanLockForUpdate() {
		return ErrLockScanForbidden
	}
	return nil
}
