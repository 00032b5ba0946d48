// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/woozymasta/psoarchive/binio"
)

var (
	// defaultPackWriterPool reuses default-sized bufio writers between rewrite calls.
	defaultPackWriterPool = sync.Pool{
		New: func() any {
			return bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)
		},
	}
	// defaultPackCopyBufferPool reuses payload copy buffers between rewrite calls.
	defaultPackCopyBufferPool = sync.Pool{
		New: func() any {
			return new([packCopyBufferSize]byte)
		},
	}
)

const (
	// packCopyBufferSize is per-rewrite temporary buffer used by streaming payload copy.
	packCopyBufferSize = 64 * 1024
	// maxArchiveOffset is the largest offset representable in 32-bit table fields.
	maxArchiveOffset = int64(^uint32(0))
)

// rewriteEntry describes one table slot for archive rewrite core.
// Exactly one of input and source is set; aux comes from auxInput, auxSource or nowhere.
type rewriteEntry struct {
	input     *Input
	source    *EntryInfo
	auxInput  *Input
	auxSource *EntryInfo
	modTime   time.Time
	name      string
	flags     uint32
}

// writtenPayload stores concrete values produced by one payload write.
type writtenPayload struct {
	size             uint32
	uncompressedSize uint32
	copied           bool
	compressed       bool
}

// rewriteWriter bundles per-call state of the rewrite core.
type rewriteWriter struct {
	w        *bufio.Writer
	src      io.ReaderAt
	matcher  *nameMatcher
	copyBuf  []byte
	opts     PackOptions
	format   Format
	pos      int64
	align    int64
	compress int
	copied   int
}

// acquirePackWriter returns a buffered writer and release callback.
func acquirePackWriter(out io.Writer, size int) (*bufio.Writer, func()) {
	if size == DefaultWriteBuffer {
		w := defaultPackWriterPool.Get().(*bufio.Writer) //nolint:forcetypeassert // pool contains only *bufio.Writer
		w.Reset(out)

		return w, func() {
			w.Reset(io.Discard)
			defaultPackWriterPool.Put(w)
		}
	}

	return bufio.NewWriterSize(out, size), func() {}
}

// acquirePackCopyBuffer returns reusable payload copy buffer and release callback.
func acquirePackCopyBuffer() ([]byte, func()) {
	arr := defaultPackCopyBufferPool.Get().(*[packCopyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	buf := arr[:]

	return buf, func() {
		defaultPackCopyBufferPool.Put(arr)
	}
}

// preparePackRewritePlan validates inputs of a new archive and turns them into rewrite items.
// Input order is kept: it is the table order.
func preparePackRewritePlan(format Format, inputs []Input) ([]rewriteEntry, error) {
	plan := make([]rewriteEntry, len(inputs))
	for i := range inputs {
		plan[i] = rewriteEntry{
			input:    &inputs[i],
			auxInput: inputs[i].Aux,
			name:     inputs[i].Name,
			flags:    inputs[i].Flags,
			modTime:  inputs[i].ModTime,
		}
	}

	if err := validateRewritePlan(format, plan); err != nil {
		return nil, err
	}

	return plan, nil
}

// validateRewritePlan checks capacity and names before anything is written.
func validateRewritePlan(format Format, plan []rewriteEntry) error {
	if len(plan) > MaxEntries {
		return fmt.Errorf("%w: %d entries, %s holds at most %d", ErrCapacityExceeded, len(plan), format, MaxEntries)
	}

	if !format.Named() {
		for i := range plan {
			if plan[i].auxInput != nil || plan[i].auxSource != nil {
				return fmt.Errorf("%w: %s entries carry no auxiliary payload", ErrInvalidArgument, format)
			}
		}

		return nil
	}

	seen := make(map[string]struct{}, len(plan))
	for i := range plan {
		if err := validateEntryName(plan[i].name); err != nil {
			return err
		}
		if _, ok := seen[plan[i].name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateEntryName, plan[i].name)
		}

		seen[plan[i].name] = struct{}{}
		if format != FormatBML && (plan[i].auxInput != nil || plan[i].auxSource != nil) {
			return fmt.Errorf("%w: %s entries carry no auxiliary payload", ErrInvalidArgument, format)
		}
	}

	return nil
}

// rewriteArchive is shared writer core for Create and editor commit flows.
// It reserves the table region, streams payloads with padding, then seeks back and writes the table.
func rewriteArchive(
	ctx context.Context,
	out io.WriteSeeker,
	src io.ReaderAt,
	layout tableLayout,
	plan []rewriteEntry,
	opts PackOptions,
) (*PackResult, error) {
	startedAt := time.Now()

	if out == nil {
		return nil, ErrNilWriter
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()
	if err := validateRewritePlan(layout.format, plan); err != nil {
		return nil, err
	}

	matcher, err := newNameMatcher(opts.Compress, opts.CompressMatcherOptions)
	if err != nil {
		return nil, err
	}

	w, releaseWriter := acquirePackWriter(out, opts.WriterBufferSize)
	defer releaseWriter()

	copyBuf, releaseCopyBuffer := acquirePackCopyBuffer()
	defer releaseCopyBuffer()

	headerSize := tableHeaderSize(layout.format, len(plan))
	if headerSize == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, layout.format)
	}
	if err := binio.WritePadding(w, headerSize); err != nil {
		return nil, fmt.Errorf("reserve table: %w", err)
	}

	rw := &rewriteWriter{
		w:       w,
		src:     src,
		matcher: matcher,
		copyBuf: copyBuf,
		opts:    opts,
		format:  layout.format,
		pos:     headerSize,
		align:   payloadAlign(layout.format),
	}

	entries := make([]EntryInfo, 0, len(plan))
	for i := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := rw.writeItem(i, &plan[i])
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if layout.format == FormatAFSNamed {
		names := encodeAFSNames(entries)
		layout.names = afsNameDirectory{offset: uint32(rw.pos), size: uint32(len(names))} //nolint:gosec // checked by writeBlock
		if err := rw.writeBlock(names, "name table"); err != nil {
			return nil, err
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush payloads: %w", err)
	}

	header, err := encodeHeader(layout, entries)
	if err != nil {
		return nil, err
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to table: %w", err)
	}
	if _, err := out.Write(header); err != nil {
		return nil, fmt.Errorf("write table: %w", err)
	}
	if _, err := out.Seek(rw.pos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}

	return &PackResult{
		Entries:           entries,
		WrittenEntries:    len(entries),
		HeaderSize:        headerSize,
		DataSize:          rw.pos - headerSize,
		CompressedEntries: rw.compress,
		CopiedEntries:     rw.copied,
		Duration:          time.Since(startedAt),
	}, nil
}

// writeItem writes primary and auxiliary payload of one table slot.
func (rw *rewriteWriter) writeItem(index int, item *rewriteEntry) (EntryInfo, error) {
	entry := EntryInfo{
		Index:   index,
		Name:    item.name,
		Flags:   item.flags,
		ModTime: item.modTime,
	}
	if !rw.format.Named() {
		entry.Name = ""
	}

	label := entry.Name
	if label == "" {
		label = fmt.Sprintf("#%d", index)
	}

	entry.Offset = uint32(rw.pos) //nolint:gosec // pos is checked after every write
	primary, err := rw.writePayload(label, item.input, item.source, false)
	if err != nil {
		return EntryInfo{}, err
	}

	entry.Size = primary.size
	if rw.format == FormatBML {
		entry.UncompressedSize = primary.uncompressedSize
		entry.Compressed = true
	}

	progress := PackEntryProgress{
		Name:             label,
		Index:            index,
		Offset:           entry.Offset,
		Size:             primary.size,
		UncompressedSize: primary.uncompressedSize,
		Copied:           primary.copied,
		Compressed:       primary.compressed,
	}

	if item.auxInput != nil || item.auxSource != nil {
		auxOffset := uint32(rw.pos) //nolint:gosec // pos is checked after every write
		aux, err := rw.writePayload(label+".pvm", item.auxInput, item.auxSource, true)
		if err != nil {
			return EntryInfo{}, err
		}

		entry.Aux = &AuxInfo{
			Offset:           auxOffset,
			Size:             aux.size,
			UncompressedSize: aux.uncompressedSize,
		}
		progress.AuxSize = aux.size
	}

	if rw.opts.OnEntryDone != nil {
		rw.opts.OnEntryDone(progress)
	}

	return entry, nil
}

// writePayload writes one payload from input or source archive and pads to format alignment.
func (rw *rewriteWriter) writePayload(label string, in *Input, source *EntryInfo, aux bool) (writtenPayload, error) {
	var (
		record writtenPayload
		err    error
	)

	switch {
	case source != nil:
		record, err = rw.copySourcePayload(label, source, aux)
	case in != nil:
		record, err = rw.writeInputPayload(label, in)
	default:
		return writtenPayload{}, fmt.Errorf("entry %s: missing input/source", label)
	}
	if err != nil {
		return writtenPayload{}, err
	}

	rw.pos += int64(record.size)
	padded, err := binio.PadTo(rw.w, rw.pos, rw.align)
	if err != nil {
		return writtenPayload{}, fmt.Errorf("pad %s: %w", label, err)
	}
	if padded > maxArchiveOffset {
		return writtenPayload{}, fmt.Errorf("%w: archive grows past 4 GiB at %s", ErrSizeOverflow, label)
	}

	rw.pos = padded
	return record, nil
}

// writeBlock writes in-memory block at current position and pads it.
func (rw *rewriteWriter) writeBlock(data []byte, label string) error {
	if _, err := rw.w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", label, err)
	}

	padded, err := binio.PadTo(rw.w, rw.pos+int64(len(data)), rw.align)
	if err != nil {
		return fmt.Errorf("pad %s: %w", label, err)
	}
	if padded > maxArchiveOffset {
		return fmt.Errorf("%w: archive grows past 4 GiB at %s", ErrSizeOverflow, label)
	}

	rw.pos = padded
	return nil
}

// copySourcePayload copies stored bytes of source entry unchanged.
func (rw *rewriteWriter) copySourcePayload(label string, source *EntryInfo, aux bool) (writtenPayload, error) {
	if rw.src == nil {
		return writtenPayload{}, ErrNilReader
	}

	record := writtenPayload{
		size:             source.Size,
		uncompressedSize: source.UncompressedSize,
		copied:           true,
	}
	offset := int64(source.Offset)
	if aux {
		if !source.HasAux() {
			return writtenPayload{}, fmt.Errorf("%w: %s", ErrNoAuxPayload, label)
		}

		record.size = source.Aux.Size
		record.uncompressedSize = source.Aux.UncompressedSize
		offset = int64(source.Aux.Offset)
	}

	if err := rw.checkRoom(label, int64(record.size)); err != nil {
		return writtenPayload{}, err
	}

	sr := io.NewSectionReader(rw.src, offset, int64(record.size))
	if err := binio.CopyExact(rw.w, sr, int64(record.size), rw.copyBuf); err != nil {
		return writtenPayload{}, fmt.Errorf("copy stored entry %s: %w", label, err)
	}

	if !aux {
		rw.copied++
	}

	return record, nil
}

// writeInputPayload opens input and writes it raw or PRS-compressed.
func (rw *rewriteWriter) writeInputPayload(label string, in *Input) (writtenPayload, error) {
	rc, err := openInputReader(label, in)
	if err != nil {
		return writtenPayload{}, err
	}

	// Index-only slots have no stored name; their "#N" label never reaches the rules.
	matchName := in.Name
	switch {
	case matchName != "":
	case !rw.format.Named():
		matchName = in.SourceName
	default:
		matchName = label
	}

	var record writtenPayload
	if shouldCompressInput(rw.format, rw.matcher, matchName) {
		record, err = rw.writeCompressedPayload(label, rc, in.SizeHint)
	} else {
		record, err = rw.writeRawPayload(label, rc)
	}

	closeErr := rc.Close()
	if err != nil {
		return writtenPayload{}, err
	}
	if closeErr != nil {
		return writtenPayload{}, fmt.Errorf("close input %s: %w", label, closeErr)
	}

	return record, nil
}

// writeRawPayload streams input into archive with 4 GiB bound.
func (rw *rewriteWriter) writeRawPayload(label string, src io.Reader) (writtenPayload, error) {
	streamed, err := binio.CopyBounded(rw.w, src, maxArchiveOffset-rw.pos, rw.copyBuf)
	if err != nil {
		return writtenPayload{}, wrapCopyError(label, err)
	}

	return writtenPayload{size: uint32(streamed)}, nil //nolint:gosec // bounded by CopyBounded limit
}

// writeCompressedPayload reads input into memory, PRS-compresses it and writes the stream.
func (rw *rewriteWriter) writeCompressedPayload(label string, src io.Reader, sizeHint int64) (writtenPayload, error) {
	var raw bytes.Buffer
	if sizeHint > 0 && sizeHint <= int64(rw.opts.MaxCompressSize) {
		raw.Grow(int(sizeHint))
	}

	if _, err := binio.CopyBounded(&raw, src, int64(rw.opts.MaxCompressSize), rw.copyBuf); err != nil {
		return writtenPayload{}, wrapCopyError(label, err)
	}

	compressed, err := compressPRS(label, raw.Bytes(), rw.opts.MaxCompressSize)
	if err != nil {
		return writtenPayload{}, err
	}
	if err := rw.checkRoom(label, int64(len(compressed))); err != nil {
		return writtenPayload{}, err
	}

	if _, err := rw.w.Write(compressed); err != nil {
		return writtenPayload{}, fmt.Errorf("write payload %s: %w", label, err)
	}

	rw.compress++
	return writtenPayload{
		size:             uint32(len(compressed)), //nolint:gosec // checked by checkRoom
		uncompressedSize: uint32(raw.Len()),       //nolint:gosec // bounded by MaxCompressSize
		compressed:       true,
	}, nil
}

// checkRoom reports ErrSizeOverflow when size bytes at current position pass 32-bit offsets.
func (rw *rewriteWriter) checkRoom(label string, size int64) error {
	if rw.pos+size > maxArchiveOffset {
		return fmt.Errorf("%w: entry %s would end past 4 GiB", ErrSizeOverflow, label)
	}

	return nil
}

// wrapCopyError maps stream limit errors to archive sentinel.
func wrapCopyError(label string, err error) error {
	if errors.Is(err, binio.ErrSizeOverflow) {
		return fmt.Errorf("%w: input %s: %w", ErrSizeOverflow, label, err)
	}

	return fmt.Errorf("stream input %s: %w", label, err)
}

// openInputReader opens source stream for one input.
func openInputReader(label string, in *Input) (io.ReadCloser, error) {
	if in.Open == nil {
		return nil, fmt.Errorf("%w: input %s has nil Open", ErrInvalidArgument, label)
	}

	rc, err := in.Open()
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", label, err)
	}

	return rc, nil
}
