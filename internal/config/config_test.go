// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithMissingFileKeepsDefaults(t *testing.T) {
	before := Keys
	defer func() { Keys = before }()

	err := Init(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, before, Keys)
}

func TestInitDecodesValidConfig(t *testing.T) {
	before := Keys
	defer func() { Keys = before }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"db": "./var/test.db",
		"pageSize": 512,
		"lockWaitTimeout": "2s"
	}`), 0o644))

	require.NoError(t, Init(path))
	assert.Equal(t, "./var/test.db", Keys.DB)
	assert.Equal(t, 512, Keys.PageSize)
	assert.Equal(t, 2*time.Second, Keys.LockWaitTimeoutDuration())
}

func TestInitRejectsUnknownField(t *testing.T) {
	before := Keys
	defer func() { Keys = before }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"db": "x.db", "bogusField": true}`), 0o644))

	err := Init(path)
	assert.Error(t, err)
}

func TestInitRejectsMissingRequiredDB(t *testing.T) {
	before := Keys
	defer func() { Keys = before }()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pageSize": 10}`), 0o644))

	err := Init(path)
	assert.Error(t, err)
}

func TestLockWaitTimeoutDurationDefaultsToZeroWhenUnset(t *testing.T) {
	c := Config{}
	assert.Equal(t, time.Duration(0), c.LockWaitTimeoutDuration())
}

func TestLockWaitTimeoutDurationIgnoresMalformedValue(t *testing.T) {
	c := Config{LockWaitTimeout: "not-a-duration"}
	assert.Equal(t, time.Duration(0), c.LockWaitTimeoutDuration())
}
