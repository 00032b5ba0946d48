// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// containerExtensions are archive types whose members can be addressed as "archive.ext/member".
var containerExtensions = []string{".zip", ".7z", ".rar"}

// streamExtensions map single-stream compression suffixes to their kind.
var streamExtensions = map[string]streamKind{
	".gz":   streamGzip,
	".zst":  streamZstd,
	".xz":   streamXZ,
	".lzma": streamLZMA,
}

// memberPath is a parsed reference to a file inside a container archive.
type memberPath struct {
	archive string
	member  string
	ext     string
}

// parseMemberPath splits "dir/pack.zip/inner/file.bin" into archive and member parts.
// It returns nil when spec does not reference an existing container archive.
func parseMemberPath(spec string) (*memberPath, error) {
	normalized := filepath.ToSlash(spec)
	lower := strings.ToLower(normalized)

	for _, ext := range containerExtensions {
		idx := strings.Index(lower, ext+"/")
		if idx == -1 {
			continue
		}

		archivePath := spec[:idx+len(ext)]
		member := normalized[idx+len(ext)+1:]
		if member == "" {
			continue
		}

		if _, err := os.Stat(archivePath); err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, fmt.Errorf("stat archive %s: %w", archivePath, err)
		}

		return &memberPath{archive: archivePath, member: member, ext: ext}, nil
	}

	return nil, nil //nolint:nilnil // nil path means plain file
}

// streamKindOf returns compression kind by file suffix.
func streamKindOf(path string) (streamKind, bool) {
	kind, ok := streamExtensions[strings.ToLower(filepath.Ext(path))]
	return kind, ok
}

// strippedName returns base name without compression suffix, e.g. "ItemPMT.prs.gz" -> "ItemPMT.prs".
func strippedName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
