// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"bufio"
	"fmt"
	"io"
)

// ListEntries opens an archive and returns entry metadata without payload reads.
func ListEntries(path string, opts ReaderOptions) ([]EntryInfo, error) {
	r, err := OpenWithOptions(path, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return r.Entries(), nil
}

// WriteListing prints one human-readable block per entry in the classic tool layout.
func (r *Reader) WriteListing(w io.Writer) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	width := indexWidth(len(r.entries))
	for i := range r.entries {
		if err := writeListingEntry(bw, r.format, &r.entries[i], width); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// writeListingEntry prints one entry in format-specific layout.
func writeListingEntry(w io.Writer, format Format, e *EntryInfo, width int) error {
	var err error
	switch format {
	case FormatAFS:
		_, err = fmt.Fprintf(w, "File %*d @ offset 0x%08x size: %d\n", width, e.Index, e.Offset, e.Size)
	case FormatAFSNamed:
		_, err = fmt.Fprintf(w, "File %*d '%s' @ offset 0x%08x size: %d\n", width, e.Index, e.Name, e.Offset, e.Size)
	case FormatGSL:
		_, err = fmt.Fprintf(w, "File %4d '%s' @ offset 0x%08x size: %d\n", e.Index, e.Name, e.Offset, e.Size)
	case FormatBML:
		_, err = fmt.Fprintf(w,
			"File %4d '%s'\n    compressed size: %d uncompressed size: %d Unknown: 0x%08x\n    offset: 0x%08x\n",
			e.Index, e.Name, e.Size, e.UncompressedSize, e.Flags, e.Offset)
		if err == nil && e.HasAux() {
			_, err = fmt.Fprintf(w, "    PVM size: %d PVM uncompressed size: %d\n    PVM offset: 0x%08x\n",
				e.Aux.Size, e.Aux.UncompressedSize, e.Aux.Offset)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return err
}
