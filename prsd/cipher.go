// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package prsd

import "github.com/woozymasta/psoarchive/binio"

// Cipher table geometry.
const (
	cipherTableLen = 57
	cipherMixStart = 56
	cipherRounds   = 4
)

// Cipher is the keyed XOR keystream used by PRSD containers.
// It is a subtractive generator over a 56-word table seeded from the key.
type Cipher struct {
	keys [cipherTableLen]uint32
	pos  int
}

// NewCipher seeds keystream from key.
func NewCipher(key uint32) *Cipher {
	c := &Cipher{}

	esi := uint32(1)
	ebx := key
	c.keys[55] = key
	c.keys[56] = key

	for edi := uint32(0x15); edi <= 0x46e; edi += 0x15 {
		idx := edi % 55
		ebx -= esi
		c.keys[idx] = esi
		esi = ebx
		ebx = c.keys[idx]
	}

	for range cipherRounds {
		c.mix()
	}

	c.pos = cipherMixStart
	return c
}

// Next returns next keystream word.
func (c *Cipher) Next() uint32 {
	if c.pos == cipherMixStart {
		c.mix()
		c.pos = 1
	}

	v := c.keys[c.pos]
	c.pos++
	return v
}

// XORWords applies keystream to data in 32-bit words of the given byte order.
// A trailing partial word is left untouched; callers pad to 4 bytes.
func (c *Cipher) XORWords(data []byte, order binio.Endian) {
	for i := 0; i+4 <= len(data); i += 4 {
		word := order.Uint32(data[i:]) ^ c.Next()
		order.PutUint32(data[i:], word)
	}
}

// mix runs one table mixing round.
func (c *Cipher) mix() {
	for i := 1; i <= 24; i++ {
		c.keys[i] -= c.keys[i+0x1f]
	}

	for i := 25; i <= 55; i++ {
		c.keys[i] -= c.keys[i-0x18]
	}
}
