// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package prs

import "fmt"

// decoder walks one PRS stream.
type decoder struct {
	// src is the compressed stream.
	src []byte
	// pos is the next unread byte in src.
	pos int
	// ctrl holds remaining control bits, lowest bit first.
	ctrl byte
	// ctrlBits is the number of unread bits in ctrl.
	ctrlBits int
}

// Decompress decodes src. When expectedLen is not negative the output must be exactly
// that long, otherwise ErrSizeMismatch is returned.
func Decompress(src []byte, expectedLen int) ([]byte, error) {
	capHint := expectedLen
	if capHint < 0 {
		capHint = len(src) * 2
	}
	// A 3-byte match token yields at most 256 bytes, so never reserve beyond that ratio.
	if maxOut := len(src)*(MaxMatchLength/2) + minStreamSize; capHint > maxOut {
		capHint = maxOut
	}

	out := make([]byte, 0, capHint)
	out, err := decode(src, out, expectedLen)
	if err != nil {
		return nil, err
	}

	if expectedLen >= 0 && len(out) != expectedLen {
		return nil, fmt.Errorf("%w: decoded %d bytes, expected %d", ErrSizeMismatch, len(out), expectedLen)
	}

	return out, nil
}

// DecompressSize returns decoded length of src without keeping the output.
func DecompressSize(src []byte) (int, error) {
	var produced int
	d := decoder{src: src}

	for {
		tok, err := d.next()
		if err != nil {
			return 0, err
		}

		switch {
		case tok.end:
			return produced, nil
		case tok.length == 0:
			produced++
		default:
			if tok.distance > produced {
				return 0, fmt.Errorf("%w: distance %d exceeds output %d", ErrCorruptStream, tok.distance, produced)
			}

			produced += tok.length
		}
	}
}

// decode appends decoded bytes of src to out. A non-negative limit stops decoding
// as soon as output would grow past it.
func decode(src []byte, out []byte, limit int) ([]byte, error) {
	d := decoder{src: src}

	for {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}

		if tok.end {
			return out, nil
		}

		if tok.length == 0 {
			if limit >= 0 && len(out) >= limit {
				return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrSizeMismatch, limit)
			}
			out = append(out, tok.literal)

			continue
		}

		if tok.distance > len(out) {
			return nil, fmt.Errorf("%w: distance %d exceeds output %d", ErrCorruptStream, tok.distance, len(out))
		}
		if limit >= 0 && len(out)+tok.length > limit {
			return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrSizeMismatch, limit)
		}

		// Overlapping copy: each byte may come from bytes produced by this match.
		from := len(out) - tok.distance
		for i := 0; i < tok.length; i++ {
			out = append(out, out[from+i])
		}
	}
}

// decodedToken is one token read back from the stream.
type decodedToken struct {
	// literal is set when length is zero.
	literal byte
	// distance is the back-reference distance of a match.
	distance int
	// length is match length, zero for literals.
	length int
	// end marks end-of-stream.
	end bool
}

// next reads one token.
func (d *decoder) next() (decodedToken, error) {
	flag, err := d.readBit()
	if err != nil {
		return decodedToken{}, err
	}

	if flag == 1 {
		b, err := d.readByte()
		if err != nil {
			return decodedToken{}, err
		}

		return decodedToken{literal: b}, nil
	}

	form, err := d.readBit()
	if err != nil {
		return decodedToken{}, err
	}

	if form == 0 {
		hi, err := d.readBit()
		if err != nil {
			return decodedToken{}, err
		}
		lo, err := d.readBit()
		if err != nil {
			return decodedToken{}, err
		}
		b, err := d.readByte()
		if err != nil {
			return decodedToken{}, err
		}

		return decodedToken{
			distance: shortMaxDistance - int(b),
			length:   int(hi<<1|lo) + MinMatchLength,
		}, nil
	}

	lo, err := d.readByte()
	if err != nil {
		return decodedToken{}, err
	}
	hi, err := d.readByte()
	if err != nil {
		return decodedToken{}, err
	}

	word := int(lo) | int(hi)<<8
	if word == 0 {
		return decodedToken{end: true}, nil
	}

	tok := decodedToken{distance: MaxDistance - word>>3}
	if size := word & 7; size != 0 {
		tok.length = size + MinMatchLength
		return tok, nil
	}

	ext, err := d.readByte()
	if err != nil {
		return decodedToken{}, err
	}

	tok.length = int(ext) + 1
	return tok, nil
}

// readBit returns next control bit, loading a new control byte when needed.
func (d *decoder) readBit() (byte, error) {
	if d.ctrlBits == 0 {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}

		d.ctrl = b
		d.ctrlBits = 8
	}

	v := d.ctrl & 1
	d.ctrl >>= 1
	d.ctrlBits--
	return v, nil
}

// readByte returns next stream byte.
func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.src) {
		return 0, fmt.Errorf("%w: unexpected end of input at byte %d", ErrCorruptStream, d.pos)
	}

	b := d.src[d.pos]
	d.pos++
	return b, nil
}
