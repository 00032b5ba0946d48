// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"path"
	"strconv"
	"strings"
	"unicode"
)

// reservedDeviceNames contains case-insensitive reserved DOS/Windows device names.
var reservedDeviceNames = map[string]struct{}{
	"aux": {}, "clock$": {}, "con": {}, "config$": {}, "nul": {}, "prn": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizeName rewrites one entry name to a filesystem-safe file name.
// Archive names are flat, so separators are replaced rather than interpreted.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	rawReserved := isReservedDeviceName(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if isUnsafeControlCharRune(r) || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteRune('_')
			continue
		}

		b.WriteRune(r)
	}

	sanitized := strings.TrimRight(b.String(), ". ")
	if sanitized == "" {
		return "_"
	}

	if rawReserved || isReservedDeviceName(sanitized) {
		sanitized = "_" + sanitized
	}

	return sanitized
}

// uniqueNames tracks output names already handed out during one extraction.
type uniqueNames struct {
	used       map[string]struct{}
	nextSuffix map[string]int
}

// newUniqueNames returns empty tracker sized for n names.
func newUniqueNames(n int) *uniqueNames {
	return &uniqueNames{
		used:       make(map[string]struct{}, n),
		nextSuffix: make(map[string]int, n),
	}
}

// claim returns name, or name with "~N" before the extension when it is already taken.
// Names compare case-insensitively so extraction behaves the same on every filesystem.
func (u *uniqueNames) claim(name string) string {
	key := strings.ToLower(name)
	if _, exists := u.used[key]; !exists {
		u.used[key] = struct{}{}
		return name
	}

	idx := max(u.nextSuffix[key], 2)
	for ; ; idx++ {
		candidate := withNumericSuffix(name, idx)
		candidateKey := strings.ToLower(candidate)
		if _, exists := u.used[candidateKey]; exists {
			continue
		}

		u.used[candidateKey] = struct{}{}
		u.nextSuffix[key] = idx + 1
		return candidate
	}
}

// isUnsafeControlCharRune reports whether rune is unsafe in a file name.
func isUnsafeControlCharRune(r rune) bool {
	if unicode.IsControl(r) || unicode.In(r, unicode.Cf) {
		return true
	}

	// U+FFFD comes from invalid byte sequences in Shift-JIS names.
	return r == '\uFFFD'
}

// isReservedDeviceName reports whether name matches reserved device identifier.
func isReservedDeviceName(name string) bool {
	candidate := strings.TrimSpace(name)
	candidate = strings.TrimRight(candidate, ". :")
	candidate = strings.ToLower(candidate)
	if dot := strings.IndexByte(candidate, '.'); dot >= 0 {
		candidate = candidate[:dot]
	}
	candidate = strings.TrimRight(candidate, ". :")
	if candidate == "" {
		return false
	}

	_, ok := reservedDeviceNames[candidate]
	return ok
}

// withNumericSuffix appends "~N" before extension.
func withNumericSuffix(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base + "~" + strconv.Itoa(n) + ext
}
