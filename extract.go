// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// extractCopyBufferSize defines per-worker buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one output file with prepared name.
type extractWorkItem struct {
	fileName string
	entry    EntryInfo
	aux      bool
}

// Extract writes selected entries to dstDir. Payloads are written as stored unless
// Decompress is set. BML raw output adds ".prs" and writes aux payloads as "<name>.pvm.prs".
// Extraction is parallelized by MaxWorkers; on failure it returns the first encountered error.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()
	if opts.BaseName == "" {
		opts.BaseName = archiveBaseName(r.path)
	}

	entries, err := r.selectEntries(opts)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		return nil
	}

	workItems, err := r.prepareExtractWorkItems(entries, opts)
	if err != nil {
		return err
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	taskCh := make(chan extractWorkItem, len(workItems))
	errCh := make(chan error, len(workItems))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < opts.MaxWorkers; w++ {
		wg.Go(func() {
			copyBuf := make([]byte, extractCopyBufferSize)
			for task := range taskCh {
				err := r.extractPreparedEntry(ctx, dstRootAbs, task, opts, copyBuf)
				if err != nil {
					cancel()
				}

				errCh <- err
			}
		})
	}

	for _, task := range workItems {
		select {
		case <-ctx.Done():
		case taskCh <- task:
			continue
		}

		break
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}
	if first == nil {
		first = ctx.Err()
	}

	return first
}

// prepareExtractWorkItems builds output names for entries and their aux payloads.
func (r *Reader) prepareExtractWorkItems(entries []EntryInfo, opts ExtractOptions) ([]extractWorkItem, error) {
	names := newUniqueNames(len(entries))
	workItems := make([]extractWorkItem, 0, len(entries))

	for _, entry := range entries {
		base, err := r.outputBaseName(&entry, opts)
		if err != nil {
			return nil, err
		}

		suffix := ""
		if r.format == FormatBML && !opts.Decompress {
			suffix = ".prs"
		}

		workItems = append(workItems, extractWorkItem{
			entry:    entry,
			fileName: names.claim(base + suffix),
		})

		if entry.HasAux() {
			workItems = append(workItems, extractWorkItem{
				entry:    entry,
				fileName: names.claim(base + ".pvm" + suffix),
				aux:      true,
			})
		}
	}

	return workItems, nil
}

// outputBaseName returns output file name of entry before BML suffixes.
func (r *Reader) outputBaseName(entry *EntryInfo, opts ExtractOptions) (string, error) {
	if !r.format.Named() || entry.Name == "" {
		name := indexOutputName(opts.BaseName, entry.Index, len(r.entries))
		return validateOutputName(name)
	}

	if opts.RawNames {
		return validateOutputName(entry.Name)
	}

	return SanitizeName(entry.Name), nil
}

// validateOutputName rejects names that escape the destination directory.
func validateOutputName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidExtractPath, name)
	}

	return name, nil
}

// extractPreparedEntry writes one prepared work item to destination root.
func (r *Reader) extractPreparedEntry(
	ctx context.Context,
	dstRootAbs string,
	task extractWorkItem,
	opts ExtractOptions,
	copyBuf []byte,
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	label := entryLabel(&task.entry)
	src, expectedSize, err := r.openExtractSource(task, opts.Decompress)
	if err != nil {
		return err
	}

	outPath := filepath.Join(dstRootAbs, task.fileName)
	file, needsTruncate, err := openExtractFile(outPath, opts.FileMode, expectedSize)
	if err != nil {
		return fmt.Errorf("open %s: %w", task.fileName, err)
	}

	written, copyErr := copyExtractData(file, src, copyBuf)
	if copyErr == nil && needsTruncate {
		if truncErr := file.Truncate(written); truncErr != nil {
			_ = file.Close()
			return fmt.Errorf("truncate %s: %w", task.fileName, truncErr)
		}
	}

	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", label, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", task.fileName, closeErr)
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(task.entry, written, outPath)
	}

	return nil
}

// openExtractSource returns stream for one work item and expected output size.
func (r *Reader) openExtractSource(task extractWorkItem, decode bool) (io.Reader, int64, error) {
	switch {
	case task.aux && decode:
		data, err := r.ReadAuxDecoded(task.entry)
		return bytes.NewReader(data), int64(len(data)), err
	case task.aux:
		sr, err := r.auxSection(&task.entry)
		if err != nil {
			return nil, 0, err
		}

		return sr, sr.Size(), nil
	case decode:
		data, err := r.ReadEntryDecoded(task.entry)
		return bytes.NewReader(data), int64(len(data)), err
	default:
		sr := r.section(&task.entry)
		return sr, sr.Size(), nil
	}
}

// openExtractFile opens output path according to selected extract file mode.
func openExtractFile(path string, mode ExtractFileMode, expectedSize int64) (*os.File, bool, error) {
	switch mode {
	case ExtractFileModeAuto, ExtractFileModeTruncate:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		return file, false, err
	case ExtractFileModeOverwriteSmart:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
		if err != nil {
			return nil, false, err
		}

		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, false, err
		}

		return file, info.Size() > expectedSize, nil
	case ExtractFileModeCreateOnly:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		return file, false, err
	default:
		return nil, false, fmt.Errorf("%w: unknown extract file mode %q", ErrInvalidArgument, mode)
	}
}

// copyExtractData copies one entry stream to output file using fixed worker buffer.
func copyExtractData(dst *os.File, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	return io.CopyBuffer(struct{ io.Writer }{dst}, src, buf)
}
