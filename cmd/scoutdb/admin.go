// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/scoutdb/scoutdb/internal/authz"
	"github.com/scoutdb/scoutdb/pkg/log"
	"github.com/scoutdb/scoutdb/pkg/lrucache"
)

// adminCacheTTL bounds how stale a cached GET /scans response may be,
// trading a small, bounded staleness window for not recomputing the
// listing on every poll from a monitoring scraper.
const adminCacheTTL = 2 * time.Second

// adminCacheSize is the byte budget for the admin surface's response
// cache; the listing body is small, so this is generous headroom
// rather than a tuned limit.
const adminCacheSize = 4 * 1024 * 1024

// newAdminRouter builds the admin HTTP surface: GET /scans lists
// in-flight scans, gated by requireRole and cached briefly through
// pkg/lrucache, the same HttpHandler middleware the teacher offers for
// its own expensive-to-compute JSON endpoints. Prometheus exposition
// is served on its own unauthenticated listener (config.Keys.MetricsAddr),
// the standard scrape-target convention, rather than mounted here.
func newAdminRouter(reg *scanRegistry, verifier *authz.Verifier) http.Handler {
	r := mux.NewRouter()

	r.Handle("/scans", requireRole(verifier, authz.RoleReader, listScansHandler(reg))).Methods(http.MethodGet)

	r.Use(lrucache.NewMiddleware(adminCacheSize, adminCacheTTL))
	r.Use(handlers.CompressHandler)
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	return handlers.CustomLoggingHandler(io.Discard, r, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Debugf("%s %s (%d, %dms)", params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
	})
}

func listScansHandler(reg *scanRegistry) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(rw).Encode(reg.list()); err != nil {
			log.Errorf("admin: encoding scan listing: %v", err)
		}
	})
}

// requireRole wraps next so it only runs for callers whose bearer
// token verifies to at least min. If verifier is nil (no JWT public
// key configured), the check is skipped entirely, the same
// disable-authentication escape hatch the teacher's own Authentication
// offers via ProgramConfig.DisableAuthentication.
func requireRole(verifier *authz.Verifier, min authz.Role, next http.Handler) http.Handler {
	if verifier == nil {
		return next
	}
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		raw = strings.TrimPrefix(raw, "Bearer ")
		if raw == "" {
			http.Error(rw, "missing Authorization header", http.StatusUnauthorized)
			return
		}

		principal, err := verifier.Verify(raw)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusUnauthorized)
			return
		}
		if principal.MaxRole() < min {
			http.Error(rw, "insufficient role", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}
