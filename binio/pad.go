// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package binio

import "io"

// zeroBlock is the padding source; 2048 covers the largest container boundary in one write.
var zeroBlock [2048]byte

// AlignUp rounds n up to the next multiple of align. Align must be a power of two.
func AlignUp(n int64, align int64) int64 {
	if align <= 1 {
		return n
	}

	return (n + align - 1) &^ (align - 1)
}

// PadLen returns number of zero bytes needed to move n to the next align boundary.
// An already aligned position needs no padding.
func PadLen(n int64, align int64) int64 {
	return AlignUp(n, align) - n
}

// WritePadding writes n zero bytes to w.
func WritePadding(w io.Writer, n int64) error {
	for n > 0 {
		chunk := int64(len(zeroBlock))
		if chunk > n {
			chunk = n
		}

		written, err := w.Write(zeroBlock[:chunk])
		if err != nil {
			return err
		}
		if int64(written) != chunk {
			return io.ErrShortWrite
		}

		n -= chunk
	}

	return nil
}

// PadTo writes zero bytes to move position pos to the next align boundary and returns the new position.
func PadTo(w io.Writer, pos int64, align int64) (int64, error) {
	pad := PadLen(pos, align)
	if err := WritePadding(w, pad); err != nil {
		return pos, err
	}

	return pos + pad, nil
}
