// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/nwaples/rardecode/v2"
)

// memberInfo is metadata of one container member.
type memberInfo struct {
	modTime time.Time
	size    int64
}

// statMember locates member and returns its metadata without reading the payload.
func statMember(mp *memberPath) (memberInfo, error) {
	rc, info, err := openMember(mp)
	if err != nil {
		return memberInfo{}, err
	}

	if err := rc.Close(); err != nil {
		return memberInfo{}, fmt.Errorf("close member %s: %w", mp.member, err)
	}

	return info, nil
}

// openMember opens member stream of a zip, 7z or rar archive.
// The returned closer also releases the archive handle.
func openMember(mp *memberPath) (io.ReadCloser, memberInfo, error) {
	switch mp.ext {
	case ".zip":
		return openZIPMember(mp)
	case ".7z":
		return openSevenZipMember(mp)
	case ".rar":
		return openRARMember(mp)
	default:
		return nil, memberInfo{}, fmt.Errorf("unsupported container %q", mp.ext)
	}
}

func openZIPMember(mp *memberPath) (io.ReadCloser, memberInfo, error) {
	reader, err := zip.OpenReader(mp.archive)
	if err != nil {
		return nil, memberInfo{}, fmt.Errorf("open ZIP archive: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !strings.EqualFold(filepath.ToSlash(file.Name), mp.member) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			_ = reader.Close()
			return nil, memberInfo{}, fmt.Errorf("open file in ZIP: %w", err)
		}

		info := memberInfo{
			size:    int64(file.UncompressedSize64), //nolint:gosec // member sizes fit int64
			modTime: file.Modified,
		}

		return &memberReader{Reader: rc, closers: []io.Closer{rc, reader}}, info, nil
	}

	_ = reader.Close()
	return nil, memberInfo{}, MemberNotFoundError{Archive: mp.archive, Member: mp.member}
}

func openSevenZipMember(mp *memberPath) (io.ReadCloser, memberInfo, error) {
	reader, err := sevenzip.OpenReader(mp.archive)
	if err != nil {
		return nil, memberInfo{}, fmt.Errorf("open 7z archive: %w", err)
	}

	for _, file := range reader.File {
		if file.FileInfo().IsDir() || !strings.EqualFold(filepath.ToSlash(file.Name), mp.member) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			_ = reader.Close()
			return nil, memberInfo{}, fmt.Errorf("open file in 7z: %w", err)
		}

		info := memberInfo{
			size:    int64(file.UncompressedSize), //nolint:gosec // member sizes fit int64
			modTime: file.FileInfo().ModTime(),
		}

		return &memberReader{Reader: rc, closers: []io.Closer{rc, reader}}, info, nil
	}

	_ = reader.Close()
	return nil, memberInfo{}, MemberNotFoundError{Archive: mp.archive, Member: mp.member}
}

// openRARMember scans rar headers sequentially; rar has no central directory.
func openRARMember(mp *memberPath) (io.ReadCloser, memberInfo, error) {
	file, err := os.Open(mp.archive)
	if err != nil {
		return nil, memberInfo{}, fmt.Errorf("open RAR archive: %w", err)
	}

	reader, err := rardecode.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, memberInfo{}, fmt.Errorf("create RAR reader: %w", err)
	}

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = file.Close()
			return nil, memberInfo{}, fmt.Errorf("read RAR header: %w", err)
		}

		if header.IsDir || !strings.EqualFold(filepath.ToSlash(header.Name), mp.member) {
			continue
		}

		info := memberInfo{
			size:    header.UnPackedSize,
			modTime: header.ModificationTime,
		}

		return &memberReader{Reader: reader, closers: []io.Closer{file}}, info, nil
	}

	_ = file.Close()
	return nil, memberInfo{}, MemberNotFoundError{Archive: mp.archive, Member: mp.member}
}

// memberReader reads one member and closes the member stream and its archive.
type memberReader struct {
	io.Reader
	closers []io.Closer
}

func (m *memberReader) Close() error {
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
