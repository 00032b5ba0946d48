// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

/*
Package prsd implements PRSD containers: a PRS stream encrypted with a keyed
XOR keystream behind a small header.

Layout (all words in the container byte order):

	offset 0  u32  decompressed size
	offset 4  u32  key
	offset 8  PRS stream padded to 4 bytes, XOR-ed word by word with the keystream

Decompress with EndianAuto tries big-endian first and falls back to
little-endian; Compress with EndianAuto writes little-endian.
*/
package prsd

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/woozymasta/psoarchive/binio"
	"github.com/woozymasta/psoarchive/prs"
)

// HeaderSize is the fixed container header length.
const HeaderSize = 8

// maxExpansion bounds decoded size per compressed byte; longer claims are rejected before decoding.
const maxExpansion = prs.MaxMatchLength / 2

// Endian re-exports container byte order selector.
type Endian = binio.Endian

// Byte order selectors.
const (
	EndianAuto   = binio.EndianAuto
	EndianLittle = binio.EndianLittle
	EndianBig    = binio.EndianBig
)

// Header is the decoded container header.
type Header struct {
	// Size is declared decompressed size.
	Size uint32 `json:"size" yaml:"size"`
	// Key seeds the keystream.
	Key uint32 `json:"key" yaml:"key"`
	// Endian is container byte order.
	Endian Endian `json:"endian" yaml:"endian"`
}

// NewKey returns random key.
func NewKey() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate key: %w", err)
	}

	return binary.LittleEndian.Uint32(b[:]), nil
}

// Compress PRS-compresses src, encrypts it with key and prepends header.
// EndianAuto writes little-endian.
func Compress(src []byte, key uint32, endian Endian) ([]byte, error) {
	if uint64(len(src)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: input of %d bytes exceeds 4 GiB", ErrInvalidArgument, len(src))
	}

	order := endian.Resolve(EndianLittle)
	packed := prs.Compress(src)
	bodyLen := int(binio.AlignUp(int64(len(packed)), 4))

	out := make([]byte, HeaderSize+bodyLen)
	order.PutUint32(out[0:4], uint32(len(src))) //nolint:gosec // checked above
	order.PutUint32(out[4:8], key)
	copy(out[HeaderSize:], packed)

	NewCipher(key).XORWords(out[HeaderSize:], order)
	return out, nil
}

// Decompress decodes container src. With EndianAuto byte order is detected.
func Decompress(src []byte, hint Endian) ([]byte, error) {
	_, out, err := Decode(src, hint)
	return out, err
}

// Decode decodes container src and returns header with payload.
func Decode(src []byte, hint Endian) (Header, []byte, error) {
	if len(src) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(src))
	}

	if hint != EndianAuto {
		return decodeWithOrder(src, hint)
	}

	for _, order := range []Endian{EndianBig, EndianLittle} {
		if !plausibleHeader(src, order) {
			continue
		}

		hdr, out, err := decodeWithOrder(src, order)
		if err == nil {
			return hdr, out, nil
		}
		if !errors.Is(err, prs.ErrCorruptStream) && !errors.Is(err, prs.ErrSizeMismatch) {
			return Header{}, nil, err
		}
	}

	return Header{}, nil, fmt.Errorf("%w: no byte order matches declared size", ErrUnknownFormat)
}

// decodeWithOrder decrypts and decompresses src in fixed byte order.
func decodeWithOrder(src []byte, order Endian) (Header, []byte, error) {
	hdr := Header{
		Size:   order.Uint32(src[0:4]),
		Key:    order.Uint32(src[4:8]),
		Endian: order,
	}

	body := make([]byte, binio.AlignUp(int64(len(src)-HeaderSize), 4))
	copy(body, src[HeaderSize:])
	NewCipher(hdr.Key).XORWords(body, order)

	if uint64(hdr.Size) > uint64(math.MaxInt) {
		return Header{}, nil, fmt.Errorf("%w: declared size %d", ErrInvalidArgument, hdr.Size)
	}

	out, err := prs.Decompress(body, int(hdr.Size))
	if err != nil {
		return Header{}, nil, err
	}

	return hdr, out, nil
}

// plausibleHeader reports whether declared size could come from the body length.
func plausibleHeader(src []byte, order Endian) bool {
	size := uint64(order.Uint32(src[0:4]))
	body := uint64(len(src) - HeaderSize)
	if body < 3 {
		return false
	}

	return size <= body*maxExpansion
}

// CompressFile compresses inPath into container outPath.
func CompressFile(inPath string, outPath string, key uint32, endian Endian) (int, error) {
	src, err := os.ReadFile(inPath) //nolint:gosec // caller-provided path is expected
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", inPath, err)
	}

	out, err := Compress(src, key, endian)
	if err != nil {
		return 0, fmt.Errorf("compress %s: %w", inPath, err)
	}

	if err := os.WriteFile(outPath, out, 0o600); err != nil {
		return 0, fmt.Errorf("write %s: %w", outPath, err)
	}

	return len(out), nil
}

// DecompressFile decodes container inPath into outPath.
func DecompressFile(inPath string, outPath string, hint Endian) (Header, error) {
	src, err := os.ReadFile(inPath) //nolint:gosec // caller-provided path is expected
	if err != nil {
		return Header{}, fmt.Errorf("read %s: %w", inPath, err)
	}

	hdr, out, err := Decode(src, hint)
	if err != nil {
		return Header{}, fmt.Errorf("decompress %s: %w", inPath, err)
	}

	if err := os.WriteFile(outPath, out, 0o600); err != nil {
		return Header{}, fmt.Errorf("write %s: %w", outPath, err)
	}

	return hdr, nil
}
