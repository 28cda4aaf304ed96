// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of scoutdb.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scanengine

// hooks is the package's only telemetry sink: a handful of optional
// callbacks an observer (internal/metrics) can install so it learns
// about skip reasons and tree rotations without this package importing
// a metrics library itself. All fields are nil until RegisterHooks is
// called, and every call site below is nil-checked.
var hooks struct {
	onSkip     func(Kind)
	onRotation func()
}

// RegisterHooks installs the engine-wide telemetry sink. A nil argument
// leaves that callback disabled. Not safe to call while a Scan is open.
func RegisterHooks(onSkip func(Kind), onRotation func()) {
	hooks.onSkip = onSkip
	hooks.onRotation = onRotation
}

func reportSkip(kind Kind) {
	if hooks.onSkip != nil {
		hooks.onSkip(kind)
	}
}

func reportRotation() {
	if hooks.onRotation != nil {
		hooks.onRotation()
	}
}
