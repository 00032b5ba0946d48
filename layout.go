// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psoarchive

package psoarchive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/woozymasta/psoarchive/binio"
)

// Table limits shared by all container formats.
const (
	// MaxEntries is table capacity of every supported format.
	MaxEntries = 65535
	// MaxNameLen is maximum entry name length in bytes (32-byte field with terminator).
	MaxNameLen = 31
)

const (
	afsMagic          = "AFS\x00"
	afsFixedHeader    = 0x80000
	afsSlotSize       = 8
	afsNameRecordSize = 48
	gslRecordSize     = 48
	gslBlockSize      = 2048
	bmlRecordSize     = 64
	bmlPayloadAlign   = 32
	bmlTag0           = 0x50
	bmlTag1           = 0x01
	nameFieldSize     = 32
	sectorAlign       = 2048
)

// tableHeaderSize returns size of table region for count entries.
func tableHeaderSize(format Format, count int) int64 {
	n := int64(count)
	switch format {
	case FormatAFS:
		return afsFixedHeader
	case FormatAFSNamed:
		return binio.AlignUp(afsSlotSize+(n+1)*afsSlotSize, sectorAlign)
	case FormatGSL:
		return binio.AlignUp((n+1)*gslRecordSize, sectorAlign)
	case FormatBML:
		return binio.AlignUp((n+1)*bmlRecordSize, sectorAlign)
	default:
		return 0
	}
}

// payloadAlign returns alignment of payload starts and ends.
func payloadAlign(format Format) int64 {
	if format == FormatBML {
		return bmlPayloadAlign
	}

	return sectorAlign
}

// detectFormat guesses container format from leading bytes.
func detectFormat(ra io.ReaderAt, size int64) (Format, error) {
	var head [12]byte
	n, err := ra.ReadAt(head[:], 0)
	if err != nil && err != io.EOF {
		return FormatAuto, fmt.Errorf("read header: %w", err)
	}

	if n >= 8 && string(head[:4]) == afsMagic {
		count := binary.LittleEndian.Uint32(head[4:8])
		if count <= MaxEntries {
			if _, ok := readAFSNameDirectory(ra, size, int(count)); ok {
				return FormatAFSNamed, nil
			}
		}

		return FormatAFS, nil
	}

	if n == len(head) && isBMLHeader(head[:]) {
		return FormatBML, nil
	}

	return FormatGSL, nil
}

// isBMLHeader reports whether the first 12 bytes carry BML tag.
func isBMLHeader(head []byte) bool {
	return bytes.Equal(head[0:4], []byte{0, 0, 0, 0}) &&
		head[8] == bmlTag0 && head[9] == bmlTag1 && head[10] == 0 && head[11] == 0
}

// readName decodes fixed-width NUL padded name field.
func readName(field []byte) string {
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		field = field[:idx]
	}

	return string(field)
}

// putName writes name into fixed-width field and zeroes the rest.
func putName(field []byte, name string) {
	n := copy(field, name)
	clear(field[n:])
}

// checkPayloadBounds validates that [offset, offset+size) lies after the table and inside the file.
func checkPayloadBounds(label string, offset int64, size int64, tableEnd int64, total int64) error {
	if offset < tableEnd {
		return fmt.Errorf("%w: %s offset %#x overlaps table ending at %#x", ErrInvalidEntryOffset, label, offset, tableEnd)
	}

	end := offset + size
	if end < offset || end > total {
		return fmt.Errorf("%w: %s payload %#x+%d out of file bounds %d", ErrInvalidEntryOffset, label, offset, size, total)
	}

	return nil
}

// parseAFS reads AFS table. want selects FormatAFS or FormatAFSNamed; FormatAuto detects the name table.
func parseAFS(ra io.ReaderAt, size int64, want Format) (Format, []EntryInfo, error) {
	var head [8]byte
	if _, err := ra.ReadAt(head[:], 0); err != nil {
		return FormatAuto, nil, fmt.Errorf("%w: short AFS header", ErrInvalidHeader)
	}
	if string(head[:4]) != afsMagic {
		return FormatAuto, nil, fmt.Errorf("%w: missing AFS magic", ErrInvalidHeader)
	}

	count64 := binary.LittleEndian.Uint32(head[4:8])
	if count64 > MaxEntries {
		return FormatAuto, nil, fmt.Errorf("%w: AFS entry count %d over %d", ErrInvalidHeader, count64, MaxEntries)
	}

	count := int(count64)
	tableEnd := int64(afsSlotSize + count*afsSlotSize)
	table := make([]byte, count*afsSlotSize)
	if _, err := ra.ReadAt(table, afsSlotSize); err != nil && count > 0 {
		return FormatAuto, nil, fmt.Errorf("%w: read AFS table: %w", ErrInvalidHeader, err)
	}

	entries := make([]EntryInfo, count)
	for i := range entries {
		rec := table[i*afsSlotSize:]
		entries[i] = EntryInfo{
			Index:  i,
			Offset: binary.LittleEndian.Uint32(rec[0:4]),
			Size:   binary.LittleEndian.Uint32(rec[4:8]),
		}

		label := fmt.Sprintf("entry %d", i)
		if err := checkPayloadBounds(label, int64(entries[i].Offset), int64(entries[i].Size), tableEnd, size); err != nil {
			return FormatAuto, nil, err
		}
	}

	format := want
	dir, hasNames := readAFSNameDirectory(ra, size, count)
	switch want {
	case FormatAuto:
		format = FormatAFS
		if hasNames {
			format = FormatAFSNamed
		}
	case FormatAFSNamed:
		if !hasNames {
			return FormatAuto, nil, fmt.Errorf("%w: AFS name table not found", ErrInvalidHeader)
		}
	}

	if format == FormatAFSNamed {
		if err := readAFSNames(ra, dir, entries); err != nil {
			return FormatAuto, nil, err
		}
	}

	return format, entries, nil
}

// afsNameDirectory locates AFS name table.
type afsNameDirectory struct {
	offset uint32
	size   uint32
}

// readAFSNameDirectory looks up the name table pointer in the slot after the last entry,
// or in the last slot before the first payload as written by some tools.
// An empty archive is named when the slot at the table end points past itself with zero size.
func readAFSNameDirectory(ra io.ReaderAt, size int64, count int) (afsNameDirectory, bool) {
	tableEnd := int64(afsSlotSize + count*afsSlotSize)
	candidates := []int64{tableEnd}

	var first [4]byte
	if _, err := ra.ReadAt(first[:], afsSlotSize); err == nil && count > 0 {
		if firstOffset := int64(binary.LittleEndian.Uint32(first[:])); firstOffset-afsSlotSize > tableEnd {
			candidates = append(candidates, firstOffset-afsSlotSize)
		}
	}

	want := uint32(count * afsNameRecordSize) //nolint:gosec // count is bounded by MaxEntries
	for _, pos := range candidates {
		var slot [afsSlotSize]byte
		if _, err := ra.ReadAt(slot[:], pos); err != nil {
			continue
		}

		dir := afsNameDirectory{
			offset: binary.LittleEndian.Uint32(slot[0:4]),
			size:   binary.LittleEndian.Uint32(slot[4:8]),
		}
		if dir.offset == 0 || dir.size != want {
			continue
		}
		if int64(dir.offset) < tableEnd+afsSlotSize || int64(dir.offset)+int64(dir.size) > size {
			continue
		}

		return dir, true
	}

	return afsNameDirectory{}, false
}

// readAFSNames fills entry names and timestamps from AFS name table.
func readAFSNames(ra io.ReaderAt, dir afsNameDirectory, entries []EntryInfo) error {
	if dir.size == 0 {
		return nil
	}

	buf := make([]byte, dir.size)
	if _, err := ra.ReadAt(buf, int64(dir.offset)); err != nil {
		return fmt.Errorf("%w: read AFS name table: %w", ErrInvalidHeader, err)
	}

	for i := range entries {
		rec := buf[i*afsNameRecordSize : (i+1)*afsNameRecordSize]
		entries[i].Name = readName(rec[:nameFieldSize])
		entries[i].ModTime = decodeAFSTime(rec[nameFieldSize : nameFieldSize+12])
	}

	return nil
}

// decodeAFSTime converts six little-endian u16 fields to time; zero year yields zero time.
func decodeAFSTime(b []byte) time.Time {
	var f [6]int
	for i := range f {
		f[i] = int(binary.LittleEndian.Uint16(b[i*2:]))
	}
	if f[0] == 0 {
		return time.Time{}
	}

	return time.Date(f[0], time.Month(f[1]), f[2], f[3], f[4], f[5], 0, time.UTC)
}

// encodeAFSTime writes time as six little-endian u16 fields.
func encodeAFSTime(b []byte, t time.Time) {
	if t.IsZero() {
		clear(b[:12])
		return
	}

	t = t.UTC()
	fields := [6]int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}
	for i, v := range fields {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v)) //nolint:gosec // calendar fields fit u16
	}
}

// parseGSL reads GSL table using explicit or detected byte order.
func parseGSL(ra io.ReaderAt, size int64, endian Endian) ([]EntryInfo, Endian, error) {
	total := uint64(size) //nolint:gosec // size is non-negative file length
	var (
		entries  []EntryInfo
		rec      [gslRecordSize]byte
		tableEnd = int64(-1)
	)

	for i := 0; ; i++ {
		pos := int64(i) * gslRecordSize
		if tableEnd >= 0 && pos >= tableEnd {
			break
		}
		if i > MaxEntries {
			return nil, endian, fmt.Errorf("%w: GSL table has more than %d entries", ErrInvalidHeader, MaxEntries)
		}

		if _, err := ra.ReadAt(rec[:], pos); err != nil {
			return nil, endian, fmt.Errorf("%w: read GSL record %d: %w", ErrInvalidHeader, i, err)
		}
		if rec[0] == 0 {
			break
		}

		if endian == EndianAuto {
			endian = detectGSLEndian(rec[nameFieldSize:nameFieldSize+4], total)
			if endian == EndianAuto {
				return nil, endian, fmt.Errorf("%w: GSL offsets implausible in both byte orders", ErrInvalidHeader)
			}
		}

		block := uint64(endian.Uint32(rec[nameFieldSize:]))
		entry := EntryInfo{
			Index: i,
			Name:  readName(rec[:nameFieldSize]),
			Size:  endian.Uint32(rec[nameFieldSize+4:]),
		}

		offset := block * gslBlockSize
		if offset > uint64(^uint32(0)) {
			return nil, endian, fmt.Errorf("%w: entry %s offset out of range", ErrInvalidEntryOffset, entry.Name)
		}
		entry.Offset = uint32(offset)

		if tableEnd < 0 || int64(offset) < tableEnd {
			tableEnd = int64(offset)
		}

		entries = append(entries, entry)
	}

	minData := int64(len(entries)+1) * gslRecordSize
	for i := range entries {
		label := "entry " + entries[i].Name
		if err := checkPayloadBounds(label, int64(entries[i].Offset), int64(entries[i].Size), minData, size); err != nil {
			return nil, endian, err
		}
	}

	return entries, endian.Resolve(EndianBig), nil
}

// detectGSLEndian applies big-endian-first offset plausibility check to one offset field.
// It returns EndianAuto when neither byte order fits the file.
func detectGSLEndian(field []byte, total uint64) Endian {
	big := uint64(binary.BigEndian.Uint32(field))
	if big <= total && big*gslBlockSize <= total {
		return EndianBig
	}

	little := uint64(binary.LittleEndian.Uint32(field))
	if little*gslBlockSize <= total {
		return EndianLittle
	}

	return EndianAuto
}

// parseBML reads BML table and derives payload offsets from cumulative padded sizes.
func parseBML(ra io.ReaderAt, size int64) ([]EntryInfo, error) {
	var head [12]byte
	if _, err := ra.ReadAt(head[:], 0); err != nil {
		return nil, fmt.Errorf("%w: short BML header", ErrInvalidHeader)
	}
	if !isBMLHeader(head[:]) {
		return nil, fmt.Errorf("%w: missing BML tag", ErrInvalidHeader)
	}

	count64 := binary.LittleEndian.Uint32(head[4:8])
	if count64 > MaxEntries {
		return nil, fmt.Errorf("%w: BML entry count %d over %d", ErrInvalidHeader, count64, MaxEntries)
	}

	count := int(count64)
	table := make([]byte, count*bmlRecordSize)
	if _, err := ra.ReadAt(table, bmlRecordSize); err != nil && count > 0 {
		return nil, fmt.Errorf("%w: read BML table: %w", ErrInvalidHeader, err)
	}

	hdr := tableHeaderSize(FormatBML, count)
	pos := hdr
	entries := make([]EntryInfo, count)
	for i := range entries {
		rec := table[i*bmlRecordSize : (i+1)*bmlRecordSize]
		entry := EntryInfo{
			Index:            i,
			Name:             readName(rec[:nameFieldSize]),
			Size:             binary.LittleEndian.Uint32(rec[32:36]),
			Flags:            binary.LittleEndian.Uint32(rec[36:40]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[40:44]),
			Compressed:       true,
		}
		auxSize := binary.LittleEndian.Uint32(rec[44:48])
		auxUsize := binary.LittleEndian.Uint32(rec[48:52])

		if pos > int64(^uint32(0)) {
			return nil, fmt.Errorf("%w: entry %s offset out of range", ErrInvalidEntryOffset, entry.Name)
		}
		entry.Offset = uint32(pos) //nolint:gosec // bounded above
		if err := checkPayloadBounds("entry "+entry.Name, pos, int64(entry.Size), hdr, size); err != nil {
			return nil, err
		}

		pos = binio.AlignUp(pos+int64(entry.Size), bmlPayloadAlign)
		if auxSize != 0 {
			if err := checkPayloadBounds("aux of "+entry.Name, pos, int64(auxSize), hdr, size); err != nil {
				return nil, err
			}

			entry.Aux = &AuxInfo{
				Offset:           uint32(pos), //nolint:gosec // bounded by file size check
				Size:             auxSize,
				UncompressedSize: auxUsize,
			}
			pos = binio.AlignUp(pos+int64(auxSize), bmlPayloadAlign)
		}

		entries[i] = entry
	}

	return entries, nil
}

// tableLayout carries everything the header encoder needs beyond entries.
type tableLayout struct {
	format Format
	endian Endian
	// names is AFS name table position; zero when absent.
	names afsNameDirectory
}

// encodeHeader builds complete table region for entries.
func encodeHeader(layout tableLayout, entries []EntryInfo) ([]byte, error) {
	hdr := make([]byte, tableHeaderSize(layout.format, len(entries)))

	switch layout.format {
	case FormatAFS, FormatAFSNamed:
		copy(hdr, afsMagic)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(entries))) //nolint:gosec // bounded by MaxEntries
		for i, e := range entries {
			slot := hdr[afsSlotSize+i*afsSlotSize:]
			binary.LittleEndian.PutUint32(slot[0:4], e.Offset)
			binary.LittleEndian.PutUint32(slot[4:8], e.Size)
		}
		if layout.format == FormatAFSNamed {
			slot := hdr[afsSlotSize+len(entries)*afsSlotSize:]
			binary.LittleEndian.PutUint32(slot[0:4], layout.names.offset)
			binary.LittleEndian.PutUint32(slot[4:8], layout.names.size)
		}
	case FormatGSL:
		order := layout.endian.Resolve(EndianBig)
		for i, e := range entries {
			if e.Offset%gslBlockSize != 0 {
				return nil, fmt.Errorf("%w: entry %s offset %#x not sector aligned", ErrInvalidEntryOffset, e.Name, e.Offset)
			}

			rec := hdr[i*gslRecordSize : (i+1)*gslRecordSize]
			putName(rec[:nameFieldSize], e.Name)
			order.PutUint32(rec[32:36], e.Offset/gslBlockSize)
			order.PutUint32(rec[36:40], e.Size)
		}
	case FormatBML:
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(entries))) //nolint:gosec // bounded by MaxEntries
		hdr[8] = bmlTag0
		hdr[9] = bmlTag1
		for i, e := range entries {
			rec := hdr[(i+1)*bmlRecordSize : (i+2)*bmlRecordSize]
			putName(rec[:nameFieldSize], e.Name)
			binary.LittleEndian.PutUint32(rec[32:36], e.Size)
			binary.LittleEndian.PutUint32(rec[36:40], e.Flags)
			binary.LittleEndian.PutUint32(rec[40:44], e.UncompressedSize)
			if e.Aux != nil {
				binary.LittleEndian.PutUint32(rec[44:48], e.Aux.Size)
				binary.LittleEndian.PutUint32(rec[48:52], e.Aux.UncompressedSize)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, layout.format)
	}

	return hdr, nil
}

// encodeAFSNames builds AFS name table records.
func encodeAFSNames(entries []EntryInfo) []byte {
	buf := make([]byte, len(entries)*afsNameRecordSize)
	for i, e := range entries {
		rec := buf[i*afsNameRecordSize : (i+1)*afsNameRecordSize]
		putName(rec[:nameFieldSize], e.Name)
		encodeAFSTime(rec[nameFieldSize:nameFieldSize+12], e.ModTime)
		binary.LittleEndian.PutUint32(rec[44:48], e.Size)
	}

	return buf
}
