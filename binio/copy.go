// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package binio

import (
	"errors"
	"fmt"
	"io"
)

// DefaultCopyBufferSize is the chunk size used when caller passes no buffer.
const DefaultCopyBufferSize = 32 * 1024

var (
	// ErrSizeOverflow means the source holds more bytes than the allowed limit.
	ErrSizeOverflow = errors.New("source exceeds size limit")
	// ErrNilStream means a nil reader or writer was passed.
	ErrNilStream = errors.New("nil reader or writer")
)

// CopyBounded streams src into dst and fails with ErrSizeOverflow when src is longer than limit.
// The buffer is scoped to the call; pass nil to allocate one.
func CopyBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if dst == nil || src == nil {
		return 0, ErrNilStream
	}
	if limit < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = make([]byte, DefaultCopyBufferSize)
	}

	var written int64
	emptyReads := 0
	for written < limit {
		chunkSize := len(buf)
		if remaining := limit - written; int64(chunkSize) > remaining {
			chunkSize = int(remaining)
		}

		n, readErr := src.Read(buf[:chunkSize])
		if n > 0 {
			emptyReads = 0
			nw, writeErr := dst.Write(buf[:n])
			written += int64(nw)

			if writeErr != nil {
				return written, writeErr
			}
			if nw != n {
				return written, io.ErrShortWrite
			}
		}
		if n == 0 && readErr == nil {
			emptyReads++
			if emptyReads > 100 {
				return written, io.ErrNoProgress
			}

			continue
		}

		if readErr != nil {
			if readErr == io.EOF {
				break
			}

			return written, readErr
		}
	}

	// Source filled the limit exactly: read one more byte to make sure nothing is left.
	if written == limit {
		var extra [1]byte
		n, err := src.Read(extra[:])
		if n > 0 {
			return written, ErrSizeOverflow
		}
		if err != nil && err != io.EOF {
			return written, err
		}
	}

	return written, nil
}

// CopyExact copies exactly size bytes from src to dst.
// A short source fails with io.ErrUnexpectedEOF.
func CopyExact(dst io.Writer, src io.Reader, size int64, buf []byte) error {
	written, err := CopyBounded(dst, io.LimitReader(src, size), size, buf)
	if err != nil {
		return err
	}
	if written != size {
		return fmt.Errorf("%w: copied %d of %d bytes", io.ErrUnexpectedEOF, written, size)
	}

	return nil
}
