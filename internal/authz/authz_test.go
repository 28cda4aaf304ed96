// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package authz

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoleIsCaseInsensitive(t *testing.T) {
	r, ok := ParseRole("Writer")
	require.True(t, ok)
	assert.Equal(t, RoleWriter, r)
}

func TestParseRoleRejectsUnknownName(t *testing.T) {
	_, ok := ParseRole("superuser")
	assert.False(t, ok)
}

func TestPrincipalCanLockForUpdateRequiresWriterOrAbove(t *testing.T) {
	assert.False(t, Principal{Roles: []Role{RoleReader}}.CanLockForUpdate())
	assert.True(t, Principal{Roles: []Role{RoleWriter}}.CanLockForUpdate())
	assert.True(t, Principal{Roles: []Role{RoleAdmin}}.CanLockForUpdate())
	assert.False(t, Principal{}.CanLockForUpdate())
}

func TestGateAllowsPlainScansForAnyone(t *testing.T) {
	assert.NoError(t, Gate(Principal{}, false))
}

func TestGateForbidsLockScansBelowWriter(t *testing.T) {
	err := Gate(Principal{Roles: []Role{RoleReader}}, true)
	assert.ErrorIs(t, err, ErrLockScanForbidden)
}

func TestGateAllowsLockScansForWriter(t *testing.T) {
	err := Gate(Principal{Roles: []Role{RoleWriter}}, true)
	assert.NoError(t, err)
}

func signToken(t *testing.T, priv ed25519.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func TestVerifierDecodesSubjectAndRoles(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	raw := signToken(t, priv, jwt.MapClaims{
		"sub":   "alice",
		"roles": []any{"writer", "bogus-role"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	v := NewVerifier(pub)
	p, err := v.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Subject)
	assert.Equal(t, []Role{RoleWriter}, p.Roles)
}

func TestVerifierRejectsTokenSignedByOtherKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, otherPriv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	raw := signToken(t, otherPriv, jwt.MapClaims{"sub": "mallory"})

	v := NewVerifier(pub)
	_, err = v.Verify(raw)
	assert.Error(t, err)
}
