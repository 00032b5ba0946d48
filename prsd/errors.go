// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package prsd

import "errors"

// Sentinel errors for PRSD operations. Use errors.Is in callers.
var (
	// ErrUnknownFormat means no byte order yields a consistent container.
	ErrUnknownFormat = errors.New("unknown PRSD format")
	// ErrShortHeader means input is shorter than the container header.
	ErrShortHeader = errors.New("PRSD input shorter than header")
	// ErrInvalidArgument means caller passed unusable parameters.
	ErrInvalidArgument = errors.New("invalid PRSD argument")
)
