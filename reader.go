// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"fmt"
	"io"
	"iter"
	"os"
	"sync"
)

// Reader provides read-only access to a parsed archive.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// path is archive file path when opened by path.
	path string
	// entries stores parsed immutable entry metadata.
	entries []EntryInfo
	// format is parsed container layout.
	format Format
	// endian is GSL table byte order; little-endian for other formats.
	endian Endian
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens archive file by path. FormatAuto detects the container layout.
func Open(path string, format Format) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{Format: format})
}

// OpenWithOptions opens archive file by path using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	r, err := NewReaderFromReaderAt(f, fi.Size(), opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	r.path = path
	return r, nil
}

// NewReaderFromReaderAt parses archive from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	r := &Reader{ra: ra, size: size, endian: EndianLittle}
	if err := r.parse(opts); err != nil {
		return nil, err
	}

	return r, nil
}

// parse detects format when needed and reads entry table.
func (r *Reader) parse(opts ReaderOptions) error {
	format := opts.Format
	if format == FormatAuto {
		detected, err := detectFormat(r.ra, r.size)
		if err != nil {
			return err
		}

		format = detected
	}

	switch format {
	case FormatAFS, FormatAFSNamed:
		want := format
		if opts.Format == FormatAuto {
			want = FormatAuto
		}

		parsed, entries, err := parseAFS(r.ra, r.size, want)
		if err != nil {
			return err
		}

		r.format = parsed
		r.entries = entries
	case FormatGSL:
		entries, endian, err := parseGSL(r.ra, r.size, opts.Endian)
		if err != nil {
			return err
		}

		r.format = FormatGSL
		r.endian = endian
		r.entries = entries
	case FormatBML:
		entries, err := parseBML(r.ra, r.size)
		if err != nil {
			return err
		}

		r.format = FormatBML
		r.entries = entries
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return nil
}

// Entries returns a copy of parsed entries.
func (r *Reader) Entries() []EntryInfo {
	if r == nil {
		return nil
	}

	entries := make([]EntryInfo, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// Format returns parsed container layout.
func (r *Reader) Format() Format {
	return r.format
}

// Endian returns table byte order (meaningful for GSL).
func (r *Reader) Endian() Endian {
	return r.endian
}

// HeaderSize returns table region length for current entry count.
func (r *Reader) HeaderSize() int64 {
	return tableHeaderSize(r.format, len(r.entries))
}

// Size returns total archive size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// checkOpen reports ErrNilReader or ErrClosed for unusable readers.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	return nil
}

// ForEachEntry calls fn for each entry in table order with a reader over its stored payload.
// A non-nil error from fn stops iteration and is returned with the number of entries visited before it.
func (r *Reader) ForEachEntry(fn func(entry EntryInfo, payload *io.SectionReader) error) (int, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}

	for i := range r.entries {
		entry := r.entries[i]
		if err := fn(entry, r.section(&entry)); err != nil {
			return i, err
		}
	}

	return len(r.entries), nil
}

// All returns lazy sequence of entries with readers over their stored payloads.
func (r *Reader) All() iter.Seq2[EntryInfo, *io.SectionReader] {
	return func(yield func(EntryInfo, *io.SectionReader) bool) {
		if r.checkOpen() != nil {
			return
		}

		for i := range r.entries {
			entry := r.entries[i]
			if !yield(entry, r.section(&entry)) {
				return
			}
		}
	}
}

// Find resolves target to an entry: by name for named formats, by decimal or 0x index for plain AFS.
func (r *Reader) Find(target string) (EntryInfo, error) {
	if r == nil {
		return EntryInfo{}, ErrNilReader
	}

	for i := range r.entries {
		if matchTarget(r.format, &r.entries[i], target) {
			return r.entries[i], nil
		}
	}

	return EntryInfo{}, fmt.Errorf("%w: %s", ErrEntryNotFound, target)
}

// section returns reader over stored primary payload.
func (r *Reader) section(entry *EntryInfo) *io.SectionReader {
	return io.NewSectionReader(r.ra, int64(entry.Offset), int64(entry.Size))
}

// auxSection returns reader over stored auxiliary payload.
func (r *Reader) auxSection(entry *EntryInfo) (*io.SectionReader, error) {
	if !entry.HasAux() {
		return nil, fmt.Errorf("%w: %s", ErrNoAuxPayload, entryLabel(entry))
	}

	return io.NewSectionReader(r.ra, int64(entry.Aux.Offset), int64(entry.Aux.Size)), nil
}

// entryLabel returns entry name, or its index for index-only entries.
func entryLabel(entry *EntryInfo) string {
	if entry.Name != "" {
		return entry.Name
	}

	return fmt.Sprintf("#%d", entry.Index)
}
