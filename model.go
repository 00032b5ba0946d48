// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/woozymasta/pathrules"
	"github.com/woozymasta/psoarchive/binio"
)

// Default packer tuning values.
const (
	DefaultWriteBuffer     = 4 * 1024 * 1024
	DefaultMaxCompressSize = 64 * 1024 * 1024
)

// Format identifies archive container layout.
type Format string

// Supported archive formats.
const (
	// FormatAuto detects format from archive contents on read.
	FormatAuto Format = ""
	// FormatAFS is index-only AFS with fixed 0x80000 table region.
	FormatAFS Format = "afs"
	// FormatAFSNamed is AFS with computed table size and trailing name table.
	FormatAFSNamed Format = "afs2"
	// FormatGSL is name-keyed GSL with selectable byte order.
	FormatGSL Format = "gsl"
	// FormatBML is name-keyed BML with PRS payloads and optional texture payloads.
	FormatBML Format = "bml"
)

// ParseFormat parses format name as used on the command line.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatAuto, FormatAFS, FormatAFSNamed, FormatGSL, FormatBML:
		return f, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Named reports whether entries are addressed by name rather than by index.
func (f Format) Named() bool {
	return f == FormatAFSNamed || f == FormatGSL || f == FormatBML
}

// Endian re-exports byte order selector used by GSL archives.
type Endian = binio.Endian

// Byte order selectors.
const (
	EndianAuto   = binio.EndianAuto
	EndianLittle = binio.EndianLittle
	EndianBig    = binio.EndianBig
)

// AuxInfo describes auxiliary payload stored right after a primary payload (BML textures).
type AuxInfo struct {
	// Offset is absolute byte offset of the auxiliary payload.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Size is stored (PRS-compressed) size.
	Size uint32 `json:"size" yaml:"size"`
	// UncompressedSize is declared decoded size.
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
}

// EntryInfo describes a single parsed archive entry.
type EntryInfo struct {
	// ModTime is entry timestamp from AFS name table; zero when absent.
	ModTime time.Time `json:"mod_time,omitzero" yaml:"mod_time,omitempty"`
	// Aux is auxiliary payload descriptor; nil when absent.
	Aux *AuxInfo `json:"aux,omitempty" yaml:"aux,omitempty"`
	// Name is entry name; empty for index-only AFS.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Index is zero-based position in archive table.
	Index int `json:"index" yaml:"index"`
	// Offset is absolute byte offset of entry payload.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Size is stored payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// UncompressedSize is declared decoded size for PRS payloads; zero when unknown.
	UncompressedSize uint32 `json:"uncompressed_size,omitempty" yaml:"uncompressed_size,omitempty"`
	// Flags is BML record field stored verbatim.
	Flags uint32 `json:"flags,omitempty" yaml:"flags,omitempty"`
	// Compressed reports whether the format guarantees a PRS payload.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// IsCompressed reports whether the entry payload is a PRS stream.
func (e *EntryInfo) IsCompressed() bool {
	return e.Compressed || e.UncompressedSize != 0
}

// HasAux reports whether entry carries auxiliary payload.
func (e *EntryInfo) HasAux() bool {
	return e.Aux != nil && e.Aux.Size != 0
}

// Input describes one source stream to be packed into an archive entry.
type Input struct {
	// ModTime is optional entry timestamp written to AFS name tables.
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
	// Open returns raw source stream for this entry.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Aux is optional auxiliary payload (BML texture).
	Aux *Input `json:"aux,omitempty" yaml:"aux,omitempty"`
	// Name is destination entry name. Replace keeps the old name when empty.
	Name string `json:"name" yaml:"name"`
	// SourceName is matched against compression rules of index-only AFS when Name is empty.
	SourceName string `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	// SizeHint is expected size in bytes (zero when unknown).
	SizeHint int64 `json:"size_hint,omitempty" yaml:"size_hint,omitempty"`
	// Flags is BML record field for new entries.
	Flags uint32 `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// PackEntryProgress contains one completed entry write event from pack flow.
type PackEntryProgress struct {
	// Name is entry name, or decimal index for index-only AFS.
	Name string `json:"name" yaml:"name"`
	// Index is entry position in written table.
	Index int `json:"index" yaml:"index"`
	// Offset is payload offset in resulting archive.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Size is stored payload size in bytes.
	Size uint32 `json:"size" yaml:"size"`
	// UncompressedSize is source size for compressed entries; zero for raw entries.
	UncompressedSize uint32 `json:"uncompressed_size,omitempty" yaml:"uncompressed_size,omitempty"`
	// AuxSize is stored auxiliary payload size.
	AuxSize uint32 `json:"aux_size,omitempty" yaml:"aux_size,omitempty"`
	// Copied reports whether the payload was copied unchanged from the source archive.
	Copied bool `json:"copied,omitempty" yaml:"copied,omitempty"`
	// Compressed reports whether a fresh PRS payload was written.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// PackOptions configures create and rewrite behavior.
type PackOptions struct {
	// OnEntryDone is called after one entry is fully written to archive payload.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Compress defines ordered name rules selecting AFS/GSL inputs to PRS-compress.
	// BML inputs are always compressed.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// MaxCompressSize bounds in-memory compression input size.
	MaxCompressSize uint32 `json:"max_compress_size,omitempty" yaml:"max_compress_size,omitempty"`
	// Endian is GSL byte order for new archives; EndianAuto writes big-endian.
	Endian Endian `json:"endian,omitempty" yaml:"endian,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// Entries is written table in archive order.
	Entries []EntryInfo `json:"entries,omitempty" yaml:"entries,omitempty"`
	// WrittenEntries is number of entries written to archive.
	WrittenEntries int `json:"written_entries" yaml:"written_entries"`
	// HeaderSize is table region length in bytes.
	HeaderSize int64 `json:"header_size" yaml:"header_size"`
	// DataSize is total payload bytes written including padding.
	DataSize int64 `json:"data_size" yaml:"data_size"`
	// CompressedEntries is number of entries written with fresh PRS payload.
	CompressedEntries int `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	// CopiedEntries is number of entries copied unchanged from source archive.
	CopiedEntries int `json:"copied_entries,omitempty" yaml:"copied_entries,omitempty"`
	// Duration is end-to-end pack core duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// EditOptions configures file-based archive edit flow.
type EditOptions struct {
	// PackOptions are applied for added/replaced entries during commit.
	PackOptions PackOptions `json:"pack_options,omitzero" yaml:"pack_options,omitzero"`
	// Format forces source format; FormatAuto detects it.
	Format Format `json:"format,omitempty" yaml:"format,omitempty"`
	// Endian forces GSL source byte order; EndianAuto detects it and keeps it on rewrite.
	Endian Endian `json:"endian,omitempty" yaml:"endian,omitempty"`
	// BackupKeep controls how many backup generations are kept after successful commit.
	// 0 means no backup, 1 keeps only `<archive>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// ReaderOptions configures archive parsing.
type ReaderOptions struct {
	// Format forces archive format; FormatAuto detects it.
	Format Format `json:"format,omitempty" yaml:"format,omitempty"`
	// Endian forces GSL byte order; EndianAuto uses offset plausibility detection.
	Endian Endian `json:"endian,omitempty" yaml:"endian,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one output file is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// BaseName prefixes AFS index-only output names; defaults to archive file name.
	BaseName string `json:"base_name,omitempty" yaml:"base_name,omitempty"`
	// Entries limits extraction to selected metadata list; nil means all parsed entries.
	Entries []EntryInfo `json:"-" yaml:"-"`
	// Targets limits extraction to entries matched by name or index.
	Targets []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	// Filter selects entries by name rules.
	Filter []pathrules.Rule `json:"filter,omitempty" yaml:"filter,omitempty"`
	// MaxWorkers is number of extraction workers (zero means one).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// Decompress decodes PRS payloads before writing.
	Decompress bool `json:"decompress,omitempty" yaml:"decompress,omitempty"`
	// RawNames disables default name sanitization during extract.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto creates new files and truncates existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeOverwriteSmart overwrites in place and truncates only when the old file is longer.
	ExtractFileModeOverwriteSmart ExtractFileMode = "overwrite_smart"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.MaxCompressSize == 0 {
		opts.MaxCompressSize = DefaultMaxCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued edit options with defaults.
func (opts *EditOptions) applyDefaults() {
	opts.PackOptions.applyDefaults()
	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
}
