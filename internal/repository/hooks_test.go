// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksRecordElapsedTime(t *testing.T) {
	h := &Hooks{}

	ctx := context.Background()
	query := "SELECT * FROM record WHERE id = ?"
	args := []any{123}

	ctxWithTime, err := h.Before(ctx, query, args...)
	require.NoError(t, err)
	assert.NotNil(t, ctxWithTime)

	beginTime := ctxWithTime.Value("begin")
	require.NotNil(t, beginTime)
	_, ok := beginTime.(time.Time)
	assert.True(t, ok, "Begin time should be time.Time")

	time.Sleep(10 * time.Millisecond)

	ctxAfter, err := h.After(ctxWithTime, query, args...)
	require.NoError(t, err)
	assert.NotNil(t, ctxAfter)
}
