// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import "errors"

// Sentinel errors for archive operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the archive has a bad magic, count or implausible table.
	ErrInvalidHeader = errors.New("invalid archive header")
	// ErrInvalidEntryOffset means an entry points outside the archive or overlaps the table.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrUnknownFormat means the archive format is not recognized or not supported.
	ErrUnknownFormat = errors.New("unknown archive format")
	// ErrEntryNotFound means no entry matches the requested name or index.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrCapacityExceeded means the entry count is over the format table capacity.
	ErrCapacityExceeded = errors.New("archive capacity exceeded")
	// ErrInvalidArgument means caller passed an unusable combination of parameters.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidEntryName means an entry name is empty or contains NUL.
	ErrInvalidEntryName = errors.New("invalid entry name")
	// ErrFileNameTooLong means the entry name does not fit the fixed-width name field.
	ErrFileNameTooLong = errors.New("entry name exceeds maximum length")
	// ErrDuplicateEntryName means two entries of a named archive resolve to the same name.
	ErrDuplicateEntryName = errors.New("duplicate entry name")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrSizeOverflow means a size or offset exceeds the 32-bit table fields.
	ErrSizeOverflow = errors.New("size exceeds uint32 archive limit")
	// ErrEmptyInputs means no inputs provided for create.
	ErrEmptyInputs = errors.New("no inputs provided for create")
	// ErrInvalidCompressPattern means one or more compression rules are invalid.
	ErrInvalidCompressPattern = errors.New("invalid compress rules")
	// ErrInvalidExtractPath means archive entry name is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrNoAuxPayload means the entry carries no auxiliary payload.
	ErrNoAuxPayload = errors.New("entry has no auxiliary payload")
)
