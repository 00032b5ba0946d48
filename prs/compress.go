// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package prs

// Match finder tuning.
const (
	hashBits      = 15
	hashSize      = 1 << hashBits
	maxChainDepth = 128
)

// encoder writes control bits and payload bytes into one output buffer.
type encoder struct {
	// out is the stream produced so far.
	out []byte
	// ctrlPos is index of the control byte being filled.
	ctrlPos int
	// ctrlBits is number of bits already used in out[ctrlPos]; 8 means a new byte is needed.
	ctrlBits int
}

// matchFinder indexes 3-byte prefixes of src with hash chains.
type matchFinder struct {
	src  []byte
	head []int32
	prev []int32
}

// Compress encodes src as a PRS stream using greedy matching.
// The result never exceeds MaxCompressedSize(len(src)).
func Compress(src []byte) []byte {
	e := newEncoder(MaxCompressedSize(len(src)))
	m := newMatchFinder(src)

	for pos := 0; pos < len(src); {
		distance, length := m.find(pos)
		if length < MinMatchLength {
			e.literal(src[pos])
			m.insert(pos)
			pos++
			continue
		}

		e.match(distance, length)
		for end := pos + length; pos < end; pos++ {
			m.insert(pos)
		}
	}

	e.end()
	return e.out
}

// ArchiveRaw encodes src as literals only. Its length is always MaxCompressedSize(len(src)).
func ArchiveRaw(src []byte) []byte {
	e := newEncoder(MaxCompressedSize(len(src)))
	for _, b := range src {
		e.literal(b)
	}

	e.end()
	return e.out
}

// newEncoder creates encoder with preallocated output.
func newEncoder(capHint int) *encoder {
	return &encoder{
		out:      make([]byte, 0, capHint),
		ctrlBits: 8,
	}
}

// putBit appends one control bit, opening a control byte at the current output position when needed.
func (e *encoder) putBit(bit byte) {
	if e.ctrlBits == 8 {
		e.ctrlPos = len(e.out)
		e.out = append(e.out, 0)
		e.ctrlBits = 0
	}

	e.out[e.ctrlPos] |= (bit & 1) << e.ctrlBits
	e.ctrlBits++
}

// literal emits one raw byte.
func (e *encoder) literal(b byte) {
	e.putBit(1)
	e.out = append(e.out, b)
}

// match emits a back-reference. Bits go first so the decoder meets any new control byte before the data.
func (e *encoder) match(distance int, length int) {
	if length <= shortMaxLength && distance <= shortMaxDistance {
		size := byte(length - MinMatchLength)
		e.putBit(0)
		e.putBit(0)
		e.putBit(size >> 1)
		e.putBit(size)
		e.out = append(e.out, byte(shortMaxDistance-distance))
		return
	}

	e.putBit(0)
	e.putBit(1)

	word := (MaxDistance - distance) << 3
	if length <= inlineMaxLength {
		word |= length - MinMatchLength
		e.out = append(e.out, byte(word), byte(word>>8))
		return
	}

	e.out = append(e.out, byte(word), byte(word>>8), byte(length-1))
}

// end emits the end marker.
func (e *encoder) end() {
	e.putBit(0)
	e.putBit(1)
	e.out = append(e.out, 0, 0)
}

// newMatchFinder allocates hash chains for src.
func newMatchFinder(src []byte) *matchFinder {
	head := make([]int32, hashSize)
	for i := range head {
		head[i] = -1
	}

	return &matchFinder{
		src:  src,
		head: head,
		prev: make([]int32, len(src)),
	}
}

// hash3 hashes 3 bytes starting at pos.
func (m *matchFinder) hash3(pos int) int {
	v := uint32(m.src[pos])<<16 | uint32(m.src[pos+1])<<8 | uint32(m.src[pos+2])
	return int((v * 2654435761) >> (32 - hashBits))
}

// insert records pos in its hash chain.
func (m *matchFinder) insert(pos int) {
	if pos+2 >= len(m.src) {
		return
	}

	h := m.hash3(pos)
	m.prev[pos] = m.head[h]
	m.head[h] = int32(pos) //nolint:gosec // input length is bounded by archive uint32 sizes
}

// find returns the longest usable match at pos, or zero length when a literal is cheaper.
func (m *matchFinder) find(pos int) (int, int) {
	maxLen := min(MaxMatchLength, len(m.src)-pos)
	if maxLen < MinMatchLength {
		return 0, 0
	}

	bestLen, bestDist := 0, 0
	if maxLen >= 3 {
		cand := m.head[m.hash3(pos)]
		for depth := 0; cand >= 0 && depth < maxChainDepth; depth++ {
			distance := pos - int(cand)
			if distance > encodeMaxDistance {
				break
			}

			if length := m.matchLen(int(cand), pos, maxLen); length > bestLen {
				bestLen, bestDist = length, distance
				if length == maxLen {
					break
				}
			}

			cand = m.prev[cand]
		}
	}

	// Two-byte runs only pay off in the short form.
	if bestLen == MinMatchLength && bestDist > shortMaxDistance {
		bestLen = 0
	}
	if bestLen >= 3 {
		return bestDist, bestLen
	}

	limit := max(pos-shortMaxDistance, 0)
	for cand := pos - 1; cand >= limit; cand-- {
		if length := m.matchLen(cand, pos, min(maxLen, shortMaxLength)); length >= MinMatchLength {
			return pos - cand, length
		}
	}

	return 0, 0
}

// matchLen counts equal bytes at cand and pos up to limit. Overlap is allowed.
func (m *matchFinder) matchLen(cand int, pos int, limit int) int {
	n := 0
	for n < limit && m.src[cand+n] == m.src[pos+n] {
		n++
	}

	return n
}
