// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package source

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// streamKind identifies single-stream compression of a source file.
type streamKind uint8

const (
	streamGzip streamKind = iota + 1
	streamZstd
	streamXZ
	streamLZMA
)

// String returns compression name.
func (k streamKind) String() string {
	switch k {
	case streamGzip:
		return "gzip"
	case streamZstd:
		return "zstd"
	case streamXZ:
		return "xz"
	case streamLZMA:
		return "lzma"
	default:
		return fmt.Sprintf("stream(%d)", uint8(k))
	}
}

// openStream opens path and wraps it with the decoder of kind.
func openStream(path string, kind streamKind) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, closer, err := newStreamDecoder(file, kind)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("open %s stream %s: %w", kind, path, err)
	}

	closers := []io.Closer{file}
	if closer != nil {
		closers = append([]io.Closer{closer}, closers...)
	}

	return &memberReader{Reader: dec, closers: closers}, nil
}

// newStreamDecoder returns decoder reader and optional closer releasing decoder state.
func newStreamDecoder(r io.Reader, kind streamKind) (io.Reader, io.Closer, error) {
	switch kind {
	case streamGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return gr, gr, nil
	case streamZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		rc := dec.IOReadCloser()
		return rc, rc, nil
	case streamXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return xr, nil, nil
	case streamLZMA:
		lr, err := lzma.NewReader(r)
		if err != nil {
			return nil, nil, err
		}

		return lr, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported stream %s", kind)
	}
}
