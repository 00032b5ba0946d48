// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

// Package binio holds the byte-level helpers shared by the PRSD codec and the
// archive containers: an explicit endianness codec, alignment padding and a
// bounded stream copy.
package binio

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Endian selects byte order for multi-byte fields.
type Endian uint8

// Supported byte orders.
const (
	// EndianAuto asks the decoder to detect byte order. Encoders resolve it to a format default.
	EndianAuto Endian = iota
	// EndianLittle is little-endian byte order.
	EndianLittle
	// EndianBig is big-endian byte order.
	EndianBig
)

// String returns short endianness name.
func (e Endian) String() string {
	switch e {
	case EndianAuto:
		return "auto"
	case EndianLittle:
		return "little"
	case EndianBig:
		return "big"
	default:
		return fmt.Sprintf("endian(%d)", uint8(e))
	}
}

// ParseEndian parses "auto", "little"/"le" or "big"/"be".
func ParseEndian(raw string) (Endian, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return EndianAuto, nil
	case "little", "le":
		return EndianLittle, nil
	case "big", "be":
		return EndianBig, nil
	default:
		return EndianAuto, fmt.Errorf("unknown endianness %q", raw)
	}
}

// Resolve returns e, or fallback when e is EndianAuto.
func (e Endian) Resolve(fallback Endian) Endian {
	if e == EndianAuto {
		return fallback
	}

	return e
}

// ByteOrder returns matching encoding/binary order. EndianAuto reads as little-endian.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == EndianBig {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// Uint32 decodes 4 bytes from b.
func (e Endian) Uint32(b []byte) uint32 {
	return e.ByteOrder().Uint32(b)
}

// PutUint32 encodes v into the first 4 bytes of b.
func (e Endian) PutUint32(b []byte, v uint32) {
	e.ByteOrder().PutUint32(b, v)
}

// Uint16 decodes 2 bytes from b.
func (e Endian) Uint16(b []byte) uint16 {
	return e.ByteOrder().Uint16(b)
}

// PutUint16 encodes v into the first 2 bytes of b.
func (e Endian) PutUint16(b []byte, v uint16) {
	e.ByteOrder().PutUint16(b, v)
}
