// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package authz

// Principal is the authenticated caller of a scan, as decoded from a
// request's bearer token.
type Principal struct {
	Subject string
	Roles   []Role
}

// HasRole reports whether p holds role exactly.
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// MaxRole returns the highest role p holds, or RoleAnonymous if p has
// no roles at all.
func (p Principal) MaxRole() Role {
	max := RoleAnonymous
	for _, r := range p.Roles {
		if r > max {
			max = r
		}
	}
	return max
}

// CanLockForUpdate reports whether p may open or advance a scan with
// lockForUpdate set. Row locks serialize writers against each other, so
// only RoleWriter and above may take them; RoleReader may still run
// ordinary (non-locking) scans.
func (p Principal) CanLockForUpdate() bool {
	return p.MaxRole() >= RoleWriter
}
