// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package prs

import (
	"fmt"
	"os"
)

// CompressFile compresses file inPath into outPath and returns compressed size.
func CompressFile(inPath string, outPath string) (int, error) {
	src, err := os.ReadFile(inPath) //nolint:gosec // caller-provided path is expected
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", inPath, err)
	}

	packed := Compress(src)
	if err := os.WriteFile(outPath, packed, 0o600); err != nil {
		return 0, fmt.Errorf("write %s: %w", outPath, err)
	}

	return len(packed), nil
}

// DecompressFile decompresses PRS file inPath into outPath and returns decoded size.
func DecompressFile(inPath string, outPath string) (int, error) {
	src, err := os.ReadFile(inPath) //nolint:gosec // caller-provided path is expected
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", inPath, err)
	}

	out, err := Decompress(src, -1)
	if err != nil {
		return 0, fmt.Errorf("decompress %s: %w", inPath, err)
	}

	if err := os.WriteFile(outPath, out, 0o600); err != nil {
		return 0, fmt.Errorf("write %s: %w", outPath, err)
	}

	return len(out), nil
}
