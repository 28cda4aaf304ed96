// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package authz

import (
	"crypto/ed25519"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier decodes a bearer token into a Principal, verifying its
// EdDSA signature against a fixed public key. It holds no other state,
// matching the ambient auth stack's stateless JWTAuthenticator.
type Verifier struct {
	publicKey ed25519.PublicKey
}

// NewVerifier builds a Verifier checking tokens against publicKey.
func NewVerifier(publicKey ed25519.PublicKey) *Verifier {
	return &Verifier{publicKey: publicKey}
}

// Verify parses and validates rawToken, returning the Principal
// encoded in its "sub" and "roles" claims. Unrecognized role names are
// dropped rather than rejecting the token outright, the same tolerance
// the ambient auth stack applies to its own role claims.
func (v *Verifier) Verify(rawToken string) (Principal, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodEdDSA {
			return nil, fmt.Errorf("authz: unsupported signing method %q (want EdDSA)", t.Method.Alg())
		}
		return v.publicKey, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("authz: invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, fmt.Errorf("authz: token has no claims")
	}

	sub, _ := claims["sub"].(string)
	return Principal{Subject: sub, Roles: extractRoles(claims)}, nil
}

func extractRoles(claims jwt.MapClaims) []Role {
	var roles []Role
	raw, ok := claims["roles"].([]any)
	if !ok {
		if single, ok := claims["roles"].(string); ok {
			if r, valid := ParseRole(single); valid {
				roles = append(roles, r)
			}
		}
		return roles
	}
	for _, rr := range raw {
		name, ok := rr.(string)
		if !ok {
			continue
		}
		if r, valid := ParseRole(name); valid {
			roles = append(roles, r)
		}
	}
	return roles
}
