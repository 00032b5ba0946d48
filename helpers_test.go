package psoarchive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testModTime = time.Date(2004, time.March, 12, 18, 30, 5, 0, time.UTC)

type testFile struct {
	data []byte
	name string
}

// bytesInput returns input backed by in-memory payload.
func bytesInput(name string, data []byte) Input {
	return Input{
		Name:     name,
		SizeHint: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// auxInput returns unnamed auxiliary input.
func auxInput(data []byte) *Input {
	in := bytesInput("", data)
	return &in
}

// createTestArchive writes archive of format with files in provided order.
func createTestArchive(t testing.TB, format Format, files []testFile, opts PackOptions) string {
	t.Helper()

	inputs := make([]Input, 0, len(files))
	for _, f := range files {
		in := bytesInput(f.name, f.data)
		in.ModTime = testModTime
		inputs = append(inputs, in)
	}

	path := filepath.Join(t.TempDir(), "test."+string(format))
	if _, err := Create(context.Background(), path, format, inputs, opts); err != nil {
		t.Fatalf("Create %s: %v", format, err)
	}

	return path
}

// indexedFiles returns count files named "fileNNN.bin" with distinct payloads.
func indexedFiles(count int) []testFile {
	files := make([]testFile, count)
	for i := range files {
		files[i] = testFile{
			name: fmt.Sprintf("file%03d.bin", i),
			data: fmt.Appendf(nil, "payload-%d", i),
		}
	}

	return files
}

// findEntry returns entry by name or fails test.
func findEntry(t *testing.T, entries []EntryInfo, name string) EntryInfo {
	t.Helper()

	for _, e := range entries {
		if e.Name == name {
			return e
		}
	}

	t.Fatalf("entry %q not found", name)
	return EntryInfo{}
}

// readEntryFromFile opens archive and returns stored payload of target.
func readEntryFromFile(t *testing.T, path string, target string) []byte {
	t.Helper()

	r, err := Open(path, FormatAuto)
	if err != nil {
		t.Fatalf("Open %s: %v", path, err)
	}
	defer func() { _ = r.Close() }()

	data, err := r.ReadEntry(target)
	if err != nil {
		t.Fatalf("ReadEntry %s: %v", target, err)
	}

	return data
}

// listTempFiles returns leftover rewrite temp files in dir.
func listTempFiles(t *testing.T, dir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp*"))
	if err != nil {
		t.Fatalf("glob temp files: %v", err)
	}

	return matches
}

// mustReadFile returns file bytes or fails test.
func mustReadFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	return data
}

func alignTest(v int64, align int64) int64 {
	return (v + align - 1) / align * align
}
