// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// EntryName returns name stored for a source path: its base name with both separators accepted.
func EntryName(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, `\`, `/`)
	raw = strings.TrimRight(raw, "/")
	if idx := strings.LastIndexByte(raw, '/'); idx >= 0 {
		raw = raw[idx+1:]
	}

	return raw
}

// validateEntryName checks that name fits fixed-width name field of a named format.
func validateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidEntryName)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidEntryName, name)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q is %d bytes, limit %d", ErrFileNameTooLong, name, len(name), MaxNameLen)
	}

	return nil
}

// parseIndexTarget parses decimal or 0x-prefixed hex entry index.
func parseIndexTarget(target string) (int, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, false
	}

	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(target), "0x"); ok {
		target = rest
		base = 16
	}

	v, err := strconv.ParseUint(target, base, 32)
	if err != nil || v >= MaxEntries {
		return 0, false
	}

	return int(v), true
}

// matchTarget reports whether entry is addressed by target.
// Index-only archives match by index; named archives match by exact name.
func matchTarget(format Format, entry *EntryInfo, target string) bool {
	if !format.Named() {
		idx, ok := parseIndexTarget(target)
		return ok && idx == entry.Index
	}

	return entry.Name == target
}

// indexWidth returns number of decimal digits of count, at least one.
func indexWidth(count int) int {
	width := 1
	for count >= 10 {
		count /= 10
		width++
	}

	return width
}

// indexOutputName builds extract name for index-only entries, e.g. "data.afs.07".
func indexOutputName(base string, index int, count int) string {
	return fmt.Sprintf("%s.%0*d", base, indexWidth(count), index)
}

// archiveBaseName returns file name of archive path for extract naming.
func archiveBaseName(path string) string {
	if path == "" {
		return "archive"
	}

	return filepath.Base(path)
}
