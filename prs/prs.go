// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

/*
Package prs implements the PRS compression format, an LZ77 variant whose
stream interleaves control bits with literal bytes and match descriptors.

Stream layout:
  - control bits are consumed least significant bit first; a fresh control
    byte is read from the stream whenever the current one runs out;
  - bit 1: one literal byte follows;
  - bits 0 0 s1 s0 and one byte d: short match of length s+2 (2..5) at
    distance 256-d (1..256);
  - bits 0 1 and a little-endian word w: end of stream when w is zero,
    otherwise a match at distance 8192-(w>>3); the length is (w&7)+2 when
    w&7 is non-zero, or the next byte plus one.

Match copies are performed byte by byte, so a distance shorter than the
length repeats the pattern being produced.

	packed := prs.Compress(data)
	out, err := prs.Decompress(packed, len(data))
	if err != nil {
	    return err
	}
*/
package prs

// Format limits.
const (
	// MaxDistance is the largest back-reference distance the decoder accepts.
	MaxDistance = 8192
	// MaxMatchLength is the longest single match token.
	MaxMatchLength = 256
	// MinMatchLength is the shortest match token.
	MinMatchLength = 2

	// shortMaxDistance is the reach of the one-byte match form.
	shortMaxDistance = 256
	// shortMaxLength is the longest one-byte match form.
	shortMaxLength = 5
	// inlineMaxLength is the longest two-byte match form with inline size.
	inlineMaxLength = 9
	// encodeMaxDistance keeps (8192 - distance) non-zero so an extended match never encodes as the end marker.
	encodeMaxDistance = MaxDistance - 1
	// minStreamSize is the size of an empty stream: one control byte plus the end word.
	minStreamSize = 3
)

// MaxCompressedSize returns the exact size of ArchiveRaw output for n input bytes,
// which is also the upper bound for Compress.
func MaxCompressedSize(n int) int {
	if n < 0 {
		n = 0
	}

	bits := n + 2
	return n + 2 + (bits+7)/8
}
