// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"fmt"
	"io"
	"math"

	"github.com/woozymasta/psoarchive/prs"
)

// OpenEntry opens stored payload of the entry addressed by target.
// Payload is returned as stored; use ReadEntryDecoded for PRS content.
func (r *Reader) OpenEntry(target string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	entry, err := r.Find(target)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(r.section(&entry)), nil
}

// OpenEntryIndex opens stored payload of entry at table position index.
func (r *Reader) OpenEntryIndex(index int) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(r.entries) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrEntryNotFound, index, len(r.entries))
	}

	return io.NopCloser(r.section(&r.entries[index])), nil
}

// OpenEntryInfo opens stored payload by already resolved metadata.
func (r *Reader) OpenEntryInfo(info EntryInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	return io.NopCloser(r.section(&info)), nil
}

// OpenAux opens stored auxiliary payload of entry.
func (r *Reader) OpenAux(info EntryInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	sr, err := r.auxSection(&info)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(sr), nil
}

// ReadEntry reads stored payload of the entry addressed by target.
func (r *Reader) ReadEntry(target string) ([]byte, error) {
	rc, err := r.OpenEntry(target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// ReadEntryDecoded reads entry payload and PRS-decodes it.
// Entries with a declared size must decode to exactly that many bytes.
func (r *Reader) ReadEntryDecoded(info EntryInfo) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	expected := -1
	if info.IsCompressed() {
		n, err := checkedUint32ToInt(info.UncompressedSize)
		if err != nil {
			return nil, err
		}

		expected = n
	}

	return decodeSection(r.section(&info), expected, entryLabel(&info))
}

// ReadAuxDecoded reads auxiliary payload and PRS-decodes it with exact size check.
func (r *Reader) ReadAuxDecoded(info EntryInfo) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	sr, err := r.auxSection(&info)
	if err != nil {
		return nil, err
	}

	expected, err := checkedUint32ToInt(info.Aux.UncompressedSize)
	if err != nil {
		return nil, err
	}

	return decodeSection(sr, expected, "aux of "+entryLabel(&info))
}

// decodeSection reads whole stored payload and decodes PRS stream.
func decodeSection(sr *io.SectionReader, expected int, label string) ([]byte, error) {
	stored := make([]byte, sr.Size())
	if _, err := io.ReadFull(sr, stored); err != nil {
		return nil, fmt.Errorf("read %s: %w", label, err)
	}

	out, err := prs.Decompress(stored, expected)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", label, err)
	}

	return out, nil
}

// checkedUint32ToInt converts uint32 to int with platform-safe overflow check.
func checkedUint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}

	return int(v), nil
}
