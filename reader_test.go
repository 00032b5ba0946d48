package psoarchive

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen_EmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.gsl")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path, FormatAuto)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestOpen_AFSInvalidMagic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.afs")
	if err := os.WriteFile(path, []byte("NOPE\x01\x00\x00\x00"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path, FormatAFS)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestOpen_AFSEntryOutOfBounds(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 64)
	copy(raw, afsMagic)
	binary.LittleEndian.PutUint32(raw[4:8], 1)
	binary.LittleEndian.PutUint32(raw[8:12], 32)
	binary.LittleEndian.PutUint32(raw[12:16], 100)

	path := filepath.Join(t.TempDir(), "oob.afs")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path, FormatAuto)
	if !errors.Is(err, ErrInvalidEntryOffset) {
		t.Fatalf("expected ErrInvalidEntryOffset, got %v", err)
	}
}

func TestOpen_DetectsFormat(t *testing.T) {
	t.Parallel()

	files := []testFile{{name: "a.bin", data: []byte("alpha")}, {name: "b.bin", data: []byte("beta")}}
	tests := []Format{FormatAFS, FormatAFSNamed, FormatGSL, FormatBML}
	for _, format := range tests {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			path := createTestArchive(t, format, files, PackOptions{})
			r, err := Open(path, FormatAuto)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer func() { _ = r.Close() }()

			if r.Format() != format {
				t.Fatalf("Format()=%q, want %q", r.Format(), format)
			}
			if len(r.Entries()) != len(files) {
				t.Fatalf("len(entries)=%d, want %d", len(r.Entries()), len(files))
			}
		})
	}
}

func TestAFS_RoundTripLayout(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: "one", data: []byte("hello")},
		{name: "two", data: bytes.Repeat([]byte{0xAB}, 3000)},
		{name: "three", data: nil},
	}
	path := createTestArchive(t, FormatAFS, files, PackOptions{})

	r, err := Open(path, FormatAFS)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	entries := r.Entries()
	wantOffsets := []uint32{0x80000, 0x80800, 0x81800}
	for i, e := range entries {
		if e.Offset != wantOffsets[i] {
			t.Fatalf("entries[%d].Offset=%#x, want %#x", i, e.Offset, wantOffsets[i])
		}
		if e.Name != "" {
			t.Fatalf("entries[%d].Name=%q, want empty for index-only AFS", i, e.Name)
		}
	}

	for i := range files {
		got, err := r.ReadEntry(fmt.Sprint(i))
		if err != nil {
			t.Fatalf("ReadEntry(%d): %v", i, err)
		}
		if !bytes.Equal(got, files[i].data) {
			t.Fatalf("entry %d payload mismatch", i)
		}
	}

	got, err := r.ReadEntry("0x1")
	if err != nil {
		t.Fatalf("ReadEntry(0x1): %v", err)
	}
	if !bytes.Equal(got, files[1].data) {
		t.Fatal("hex index target resolved to wrong entry")
	}

	if r.HeaderSize() != afsFixedHeader {
		t.Fatalf("HeaderSize()=%#x, want %#x", r.HeaderSize(), afsFixedHeader)
	}
}

func TestAFSNamed_NamesAndTimes(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: "map_forest01.rel", data: []byte("forest")},
		{name: "map_cave01.rel", data: []byte("cave")},
	}
	path := createTestArchive(t, FormatAFSNamed, files, PackOptions{})

	r, err := Open(path, FormatAuto)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if r.Format() != FormatAFSNamed {
		t.Fatalf("Format()=%q, want afs2", r.Format())
	}
	if r.HeaderSize() != 2048 {
		t.Fatalf("HeaderSize()=%d, want 2048", r.HeaderSize())
	}

	for i, e := range r.Entries() {
		if e.Name != files[i].name {
			t.Fatalf("entries[%d].Name=%q, want %q", i, e.Name, files[i].name)
		}
		if !e.ModTime.Equal(testModTime) {
			t.Fatalf("entries[%d].ModTime=%v, want %v", i, e.ModTime, testModTime)
		}
	}

	got, err := r.ReadEntry("map_cave01.rel")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(got) != "cave" {
		t.Fatalf("payload=%q, want cave", got)
	}

	plain, err := Open(path, FormatAFS)
	if err != nil {
		t.Fatalf("Open as plain AFS: %v", err)
	}
	defer func() { _ = plain.Close() }()

	if plain.Entries()[0].Name != "" {
		t.Fatal("forced plain AFS must not read names")
	}
}

func TestGSL_EndianDetection(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: "quest1.bin", data: []byte("first quest payload")},
		{name: "quest1.dat", data: bytes.Repeat([]byte("dat"), 900)},
	}

	for _, endian := range []Endian{EndianBig, EndianLittle} {
		t.Run(endian.String(), func(t *testing.T) {
			t.Parallel()

			path := createTestArchive(t, FormatGSL, files, PackOptions{Endian: endian})

			auto, err := OpenWithOptions(path, ReaderOptions{Format: FormatGSL})
			if err != nil {
				t.Fatalf("Open auto: %v", err)
			}
			defer func() { _ = auto.Close() }()

			if auto.Endian() != endian {
				t.Fatalf("detected %s, want %s", auto.Endian(), endian)
			}

			explicit, err := OpenWithOptions(path, ReaderOptions{Format: FormatGSL, Endian: endian})
			if err != nil {
				t.Fatalf("Open explicit: %v", err)
			}
			defer func() { _ = explicit.Close() }()

			for _, r := range []*Reader{auto, explicit} {
				for _, f := range files {
					got, err := r.ReadEntry(f.name)
					if err != nil {
						t.Fatalf("ReadEntry(%s): %v", f.name, err)
					}
					if !bytes.Equal(got, f.data) {
						t.Fatalf("%s payload mismatch", f.name)
					}
				}
			}
		})
	}
}

func TestGSL_DefaultsToBigEndian(t *testing.T) {
	t.Parallel()

	path := createTestArchive(t, FormatGSL, []testFile{{name: "a", data: []byte("x")}}, PackOptions{})
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := binary.BigEndian.Uint32(raw[32:36]); got != 1 {
		t.Fatalf("big-endian sector=%d, want 1", got)
	}
}

func TestGSL_ImplausibleTable(t *testing.T) {
	t.Parallel()

	raw := make([]byte, 4096)
	copy(raw, "broken.bin")
	copy(raw[32:36], []byte{0xFF, 0xFF, 0xFF, 0x7F})

	path := filepath.Join(t.TempDir(), "broken.gsl")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path, FormatGSL)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestBML_LayoutAndDecode(t *testing.T) {
	t.Parallel()

	model := bytes.Repeat([]byte("NJCM model data "), 64)
	texture := bytes.Repeat([]byte("PVMH"), 300)
	inputs := []Input{
		bytesInput("boss.nj", model),
		bytesInput("boss_anim.njm", []byte("motion")),
	}
	inputs[0].Aux = auxInput(texture)
	inputs[0].Flags = 0x00001234

	path := filepath.Join(t.TempDir(), "boss.bml")
	if _, err := Create(context.Background(), path, FormatBML, inputs, PackOptions{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	r, err := Open(path, FormatAuto)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries)=%d, want 2", len(entries))
	}

	first := entries[0]
	if first.Offset != 2048 {
		t.Fatalf("first offset=%#x, want 0x800", first.Offset)
	}
	if first.Flags != 0x1234 {
		t.Fatalf("flags=%#x, want 0x1234", first.Flags)
	}
	if !first.HasAux() {
		t.Fatal("first entry lost aux payload")
	}
	if want := uint32(alignTest(int64(first.Offset)+int64(first.Size), 32)); first.Aux.Offset != want {
		t.Fatalf("aux offset=%#x, want %#x", first.Aux.Offset, want)
	}
	if want := uint32(alignTest(int64(first.Aux.Offset)+int64(first.Aux.Size), 32)); entries[1].Offset != want {
		t.Fatalf("second offset=%#x, want %#x", entries[1].Offset, want)
	}
	if entries[1].HasAux() {
		t.Fatal("second entry has unexpected aux")
	}

	gotModel, err := r.ReadEntryDecoded(first)
	if err != nil {
		t.Fatalf("ReadEntryDecoded: %v", err)
	}
	if !bytes.Equal(gotModel, model) {
		t.Fatal("decoded model mismatch")
	}

	gotTexture, err := r.ReadAuxDecoded(first)
	if err != nil {
		t.Fatalf("ReadAuxDecoded: %v", err)
	}
	if !bytes.Equal(gotTexture, texture) {
		t.Fatal("decoded texture mismatch")
	}

	if _, err := r.ReadAuxDecoded(entries[1]); !errors.Is(err, ErrNoAuxPayload) {
		t.Fatalf("expected ErrNoAuxPayload, got %v", err)
	}
}

func TestForEachEntry_VisitorErrorStops(t *testing.T) {
	t.Parallel()

	path := createTestArchive(t, FormatGSL, []testFile{
		{name: "a", data: []byte("1")},
		{name: "b", data: []byte("2")},
		{name: "c", data: []byte("3")},
	}, PackOptions{})

	r, err := Open(path, FormatGSL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	stop := errors.New("stop")
	var seen []string
	n, err := r.ForEachEntry(func(e EntryInfo, payload *io.SectionReader) error {
		data, readErr := io.ReadAll(payload)
		if readErr != nil {
			return readErr
		}

		seen = append(seen, e.Name+"="+string(data))
		if e.Name == "b" {
			return stop
		}

		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected visitor error, got %v", err)
	}
	if n != 1 {
		t.Fatalf("visited=%d, want 1", n)
	}
	if strings.Join(seen, ",") != "a=1,b=2" {
		t.Fatalf("seen=%v", seen)
	}

	count := 0
	for e := range r.All() {
		if e.Index != count {
			t.Fatalf("All yielded index %d at position %d", e.Index, count)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("All yielded %d entries, want 3", count)
	}
}

func TestReader_ClosedAndNotFound(t *testing.T) {
	t.Parallel()

	path := createTestArchive(t, FormatGSL, []testFile{{name: "a", data: []byte("1")}}, PackOptions{})
	r, err := Open(path, FormatGSL)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := r.ReadEntry("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if _, err := r.OpenEntryIndex(5); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound for index, got %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := r.ReadEntry("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestWriteListing_DoesNotModifyArchive(t *testing.T) {
	t.Parallel()

	path := createTestArchive(t, FormatAFS, []testFile{
		{name: "a", data: []byte("hello")},
		{name: "b", data: []byte("hi")},
	}, PackOptions{})

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	r, err := Open(path, FormatAuto)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var out bytes.Buffer
	if err := r.WriteListing(&out); err != nil {
		t.Fatalf("WriteListing: %v", err)
	}
	_ = r.Close()

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatal("listing modified archive bytes")
	}

	want := "File 0 @ offset 0x00080000 size: 5\nFile 1 @ offset 0x00080800 size: 2\n"
	if out.String() != want {
		t.Fatalf("listing=%q, want %q", out.String(), want)
	}
}

func TestWriteListing_BML(t *testing.T) {
	t.Parallel()

	in := bytesInput("tex.nj", []byte("model"))
	in.Aux = auxInput([]byte("texture"))
	path := filepath.Join(t.TempDir(), "one.bml")
	if _, err := Create(context.Background(), path, FormatBML, []Input{in}, PackOptions{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	r, err := Open(path, FormatBML)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	var out bytes.Buffer
	if err := r.WriteListing(&out); err != nil {
		t.Fatalf("WriteListing: %v", err)
	}

	e := r.Entries()[0]
	want := fmt.Sprintf("File    0 'tex.nj'\n    compressed size: %d uncompressed size: 5 Unknown: 0x00000000\n    offset: 0x00000800\n"+
		"    PVM size: %d PVM uncompressed size: 7\n    PVM offset: 0x%08x\n", e.Size, e.Aux.Size, e.Aux.Offset)
	if out.String() != want {
		t.Fatalf("listing=%q, want %q", out.String(), want)
	}
}

func TestListEntries(t *testing.T) {
	t.Parallel()

	path := createTestArchive(t, FormatGSL, []testFile{{name: "x", data: []byte("1")}}, PackOptions{})
	entries, err := ListEntries(path, ReaderOptions{})
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "x" {
		t.Fatalf("entries=%+v", entries)
	}
}
