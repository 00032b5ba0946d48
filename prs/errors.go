// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package prs

import "errors"

// Sentinel errors for PRS operations. Use errors.Is in callers.
var (
	// ErrCorruptStream means the stream references data before the start of output or ends without end marker.
	ErrCorruptStream = errors.New("corrupt PRS stream")
	// ErrSizeMismatch means the decoded length differs from the expected length.
	ErrSizeMismatch = errors.New("PRS decoded size mismatch")
)
