// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

// Package source resolves CLI input paths into archive inputs: plain files,
// members of zip/7z/rar containers and gzip/zstd/xz/lzma compressed files.
package source

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/woozymasta/psoarchive"
)

// Source is one resolved input stream.
type Source struct {
	// ModTime is source timestamp; zero when unknown.
	ModTime time.Time
	open    func() (io.ReadCloser, error)
	// Name is entry name derived from the source path.
	Name string
	// Path is the original source path.
	Path string
	// SizeHint is decoded size in bytes; zero when unknown (compressed streams).
	SizeHint int64
}

// Open resolves spec. Container members are addressed as "pack.zip/dir/file.bin",
// compressed streams by their suffix, everything else is read as a plain file.
func Open(spec string) (*Source, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, ErrEmptySpec
	}

	mp, err := parseMemberPath(spec)
	if err != nil {
		return nil, err
	}
	if mp != nil {
		info, err := statMember(mp)
		if err != nil {
			return nil, err
		}

		return &Source{
			Path:     spec,
			Name:     psoarchive.EntryName(mp.member),
			SizeHint: info.size,
			ModTime:  info.modTime,
			open: func() (io.ReadCloser, error) {
				rc, _, err := openMember(mp)
				return rc, err
			},
		}, nil
	}

	fi, err := os.Stat(spec)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("source %s is a directory", spec)
	}

	if kind, ok := streamKindOf(spec); ok {
		return &Source{
			Path:    spec,
			Name:    strippedName(spec),
			ModTime: fi.ModTime(),
			open: func() (io.ReadCloser, error) {
				return openStream(spec, kind)
			},
		}, nil
	}

	return &Source{
		Path:     spec,
		Name:     psoarchive.EntryName(spec),
		SizeHint: fi.Size(),
		ModTime:  fi.ModTime(),
		open: func() (io.ReadCloser, error) {
			return os.Open(spec) //nolint:gosec // user-provided input path
		},
	}, nil
}

// Open returns a fresh decoded stream.
func (s *Source) Open() (io.ReadCloser, error) {
	return s.open()
}

// ReadAll reads the whole decoded source.
func (s *Source) ReadAll() ([]byte, error) {
	rc, err := s.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", s.Path, err)
	}

	return data, nil
}

// Input converts source into archive input. Empty name keeps the source-derived name.
func (s *Source) Input(name string) psoarchive.Input {
	if name == "" {
		name = s.Name
	}

	return psoarchive.Input{
		Name:       name,
		SourceName: s.Name,
		SizeHint:   s.SizeHint,
		ModTime:    s.ModTime,
		Open:       s.open,
	}
}

// Inputs resolves every spec into archive inputs in order.
func Inputs(specs []string) ([]psoarchive.Input, error) {
	inputs := make([]psoarchive.Input, 0, len(specs))
	for _, spec := range specs {
		src, err := Open(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", spec, err)
		}

		inputs = append(inputs, src.Input(""))
	}

	return inputs, nil
}
