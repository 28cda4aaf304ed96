// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import "time"

// RepositoryConfig holds configuration for repository operations.
// All fields have sensible defaults, so this configuration is optional.
type RepositoryConfig struct {
	// CacheSize is the LRU cache size in bytes for resolved row lookups.
	// Default: 1MB (1024 * 1024 bytes)
	CacheSize int

	// MaxOpenConnections, MaxIdleConnections, ConnectionMaxLifetime and
	// ConnectionMaxIdleTime describe connection-pool limits. Connect does
	// not read any of them: it always limits the pool to a single open
	// connection and leaves the other settings at database/sql's defaults.
	//
	// MaxOpenConnections default: 4
	MaxOpenConnections int

	// MaxIdleConnections default: 4
	MaxIdleConnections int

	// ConnectionMaxLifetime default: 1 hour
	ConnectionMaxLifetime time.Duration

	// ConnectionMaxIdleTime default: 1 hour
	ConnectionMaxIdleTime time.Duration

	// PageSize is the number of index entries fetched per round trip by
	// a PageIterator. Default: 256.
	PageSize int
}

// DefaultConfig returns the default repository configuration.
// These values are optimized for typical deployments.
func DefaultConfig() *RepositoryConfig {
	return &RepositoryConfig{
		CacheSize:             1 * 1024 * 1024, // 1MB
		MaxOpenConnections:    4,
		MaxIdleConnections:    4,
		ConnectionMaxLifetime: time.Hour,
		ConnectionMaxIdleTime: time.Hour,
		PageSize:              256,
	}
}

// repoConfig is the package-level configuration instance.
// It is initialized with defaults and can be overridden via SetConfig.
var repoConfig *RepositoryConfig = DefaultConfig()

// SetConfig sets the repository configuration.
// This must be called before any repository initialization (Connect,
// NewRecordRepository, etc.). If not called, default values from
// DefaultConfig() are used.
func SetConfig(cfg *RepositoryConfig) {
	if cfg != nil {
		repoConfig = cfg
	}
}

// GetConfig returns the current repository configuration.
func GetConfig() *RepositoryConfig {
	return repoConfig
}
