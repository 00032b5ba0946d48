package binio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEndianUint32(t *testing.T) {
	t.Parallel()

	raw := []byte{0x01, 0x02, 0x03, 0x04}
	tests := []struct {
		endian Endian
		want   uint32
	}{
		{EndianBig, 0x01020304},
		{EndianLittle, 0x04030201},
		{EndianAuto, 0x04030201},
	}

	for _, tc := range tests {
		if got := tc.endian.Uint32(raw); got != tc.want {
			t.Fatalf("%s Uint32=%#x, want %#x", tc.endian, got, tc.want)
		}

		buf := make([]byte, 4)
		tc.endian.PutUint32(buf, tc.want)
		if !bytes.Equal(buf, raw) {
			t.Fatalf("%s PutUint32=% x, want % x", tc.endian, buf, raw)
		}
	}

	if got := EndianBig.Uint16(raw); got != 0x0102 {
		t.Fatalf("big Uint16=%#x", got)
	}
	if got := EndianLittle.Uint16(raw); got != 0x0201 {
		t.Fatalf("little Uint16=%#x", got)
	}
}

func TestParseEndian(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Endian{
		"":       EndianAuto,
		"auto":   EndianAuto,
		"LE":     EndianLittle,
		"little": EndianLittle,
		"be":     EndianBig,
		" Big ":  EndianBig,
	} {
		got, err := ParseEndian(raw)
		if err != nil {
			t.Fatalf("ParseEndian(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseEndian(%q)=%s, want %s", raw, got, want)
		}
	}

	if _, err := ParseEndian("middle"); err == nil {
		t.Fatal("expected error for unknown endianness")
	}

	if EndianAuto.Resolve(EndianBig) != EndianBig || EndianLittle.Resolve(EndianBig) != EndianLittle {
		t.Fatal("Resolve must only replace auto")
	}
}

func TestAlignUpAndPadLen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, align, want int64
	}{
		{0, 2048, 0},
		{1, 2048, 2048},
		{2048, 2048, 2048},
		{2049, 2048, 4096},
		{33, 32, 64},
		{7, 1, 7},
	}

	for _, tc := range tests {
		if got := AlignUp(tc.n, tc.align); got != tc.want {
			t.Fatalf("AlignUp(%d,%d)=%d, want %d", tc.n, tc.align, got, tc.want)
		}
		if got := PadLen(tc.n, tc.align); got != tc.want-tc.n {
			t.Fatalf("PadLen(%d,%d)=%d, want %d", tc.n, tc.align, got, tc.want-tc.n)
		}
	}
}

func TestPadTo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pos, err := PadTo(&buf, 5000, 2048)
	if err != nil {
		t.Fatalf("PadTo: %v", err)
	}
	if pos != 6144 {
		t.Fatalf("pos=%d, want 6144", pos)
	}
	if buf.Len() != 1144 {
		t.Fatalf("written=%d, want 1144", buf.Len())
	}
	if bytes.ContainsFunc(buf.Bytes(), func(r rune) bool { return r != 0 }) {
		t.Fatal("padding must be zero bytes")
	}

	buf.Reset()
	if _, err := PadTo(&buf, 4096, 2048); err != nil {
		t.Fatalf("PadTo aligned: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("aligned position must not be padded, got %d bytes", buf.Len())
	}
}

func TestCopyBounded(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	n, err := CopyBounded(&dst, strings.NewReader("hello"), 5, make([]byte, 2))
	if err != nil {
		t.Fatalf("CopyBounded exact: %v", err)
	}
	if n != 5 || dst.String() != "hello" {
		t.Fatalf("got n=%d data=%q", n, dst.String())
	}

	dst.Reset()
	if _, err := CopyBounded(&dst, strings.NewReader("hello!"), 5, nil); !errors.Is(err, ErrSizeOverflow) {
		t.Fatalf("expected ErrSizeOverflow, got %v", err)
	}

	if _, err := CopyBounded(nil, strings.NewReader("x"), 1, nil); !errors.Is(err, ErrNilStream) {
		t.Fatalf("expected ErrNilStream, got %v", err)
	}
}

func TestCopyExact(t *testing.T) {
	t.Parallel()

	var dst bytes.Buffer
	src := strings.NewReader("abcdef")
	if err := CopyExact(&dst, src, 4, nil); err != nil {
		t.Fatalf("CopyExact: %v", err)
	}
	if dst.String() != "abcd" {
		t.Fatalf("got %q, want %q", dst.String(), "abcd")
	}

	rest, _ := io.ReadAll(src)
	if string(rest) != "ef" {
		t.Fatalf("CopyExact consumed too much: rest=%q", rest)
	}

	if err := CopyExact(&dst, strings.NewReader("ab"), 4, nil); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
