// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the engine's process-wide configuration: the
// sqlite3 database path, the repository and lock tuning knobs, and the
// addresses of the optional ambient services (NATS, metrics, admin
// HTTP). Init loads and validates a JSON config file the same way the
// teacher's internal/config does: jsonschema first, then a
// DisallowUnknownFields decode into Keys.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/scoutdb/scoutdb/pkg/log"
)

// Config is the engine's top-level configuration.
type Config struct {
	// DB is the path to the sqlite3 database file.
	DB string `json:"db"`

	// PageSize is forwarded to internal/repository.RepositoryConfig.
	PageSize int `json:"pageSize,omitempty"`
	// CacheSize is forwarded to internal/repository.RepositoryConfig.
	CacheSize int `json:"cacheSize,omitempty"`

	// LockWaitTimeout is a Go duration string (e.g. "5s"), parsed by
	// LockWaitTimeoutDuration. Nothing outside this package reads it:
	// FetchForUpdate under LockPolicyWait is not bounded by it.
	LockWaitTimeout string `json:"lockWaitTimeout,omitempty"`

	// MaintenanceScanInterval configures internal/taskmanager, as a Go
	// duration string. Empty uses taskmanager.DefaultMaintenanceInterval.
	MaintenanceScanInterval string `json:"maintenanceScanInterval,omitempty"`

	// Indexes lists the index_entry.index_name values cmd/scoutdb's
	// maintenance scan walks (the one-shot CLI scan takes its index from
	// the -index flag instead). Defaults to just "primary".
	Indexes []string `json:"indexes,omitempty"`

	// NatsURL, if set, enables internal/notify's scan lifecycle events.
	NatsURL string `json:"natsURL,omitempty"`
	// MetricsAddr, if set, serves Prometheus metrics for internal/metrics.
	MetricsAddr string `json:"metricsAddr,omitempty"`
	// AdminAddr, if set, serves cmd/scoutdb's admin HTTP surface.
	AdminAddr string `json:"adminAddr,omitempty"`

	LogLevel string `json:"logLevel,omitempty"`
}

// Keys is the process-wide configuration instance, initialized to
// sensible defaults and overridden by Init.
var Keys = Config{
	DB:        "./var/scoutdb.db",
	PageSize:  256,
	CacheSize: 1 * 1024 * 1024,
	Indexes:   []string{"primary"},
	LogLevel:  "info",
}

// LockWaitTimeoutDuration parses LockWaitTimeout, returning 0 (wait
// indefinitely) if it is unset or malformed.
func (c Config) LockWaitTimeoutDuration() time.Duration {
	if c.LockWaitTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.LockWaitTimeout)
	if err != nil {
		log.Warnf("config: invalid lockWaitTimeout %q, ignoring", c.LockWaitTimeout)
		return 0
	}
	return d
}

// Init loads a .env file if present (for secrets such as NATS
// credentials supplied as environment variables), then reads,
// schema-validates and decodes the JSON config file at path into Keys.
// A missing config file is not an error; Keys keeps its defaults.
func Init(path string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("config: failed to load .env file: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := validate(bytes.NewReader(raw)); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&Keys); err != nil {
		return err
	}

	return nil
}
