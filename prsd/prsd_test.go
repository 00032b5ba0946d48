package prsd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/psoarchive/prs"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("quest data block "), 300)
	tests := []struct {
		name   string
		endian Endian
		hint   Endian
		want   Endian
	}{
		{"little explicit", EndianLittle, EndianLittle, EndianLittle},
		{"little auto", EndianLittle, EndianAuto, EndianLittle},
		{"big explicit", EndianBig, EndianBig, EndianBig},
		{"big auto", EndianBig, EndianAuto, EndianBig},
		{"auto writes little", EndianAuto, EndianAuto, EndianLittle},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			packed, err := Compress(payload, 0x12345678, tc.endian)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if (len(packed)-HeaderSize)%4 != 0 {
				t.Fatalf("body length %d is not word aligned", len(packed)-HeaderSize)
			}

			hdr, out, err := Decode(packed, tc.hint)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(out, payload) {
				t.Fatal("payload mismatch after round trip")
			}
			if hdr.Endian != tc.want {
				t.Fatalf("endian=%s, want %s", hdr.Endian, tc.want)
			}
			if hdr.Key != 0x12345678 || int(hdr.Size) != len(payload) {
				t.Fatalf("header=%+v", hdr)
			}
		})
	}
}

func TestCompressHeaderLayout(t *testing.T) {
	t.Parallel()

	packed, err := Compress([]byte("abcd"), 0xfeedface, EndianBig)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := binary.BigEndian.Uint32(packed[0:4]); got != 4 {
		t.Fatalf("size field=%d, want 4", got)
	}
	if got := binary.BigEndian.Uint32(packed[4:8]); got != 0xfeedface {
		t.Fatalf("key field=%#x, want 0xfeedface", got)
	}

	packed, err = Compress([]byte("abcd"), 0xfeedface, EndianLittle)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if got := binary.LittleEndian.Uint32(packed[4:8]); got != 0xfeedface {
		t.Fatalf("little key field=%#x, want 0xfeedface", got)
	}
}

func TestCompressEncryptsBody(t *testing.T) {
	t.Parallel()

	payload := []byte("plain text that must not be visible in the container body")
	packed, err := Compress(payload, 99, EndianLittle)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	plain := prs.Compress(payload)
	if bytes.Equal(packed[HeaderSize:HeaderSize+len(plain)], plain) {
		t.Fatal("container body equals plain PRS stream")
	}
}

func TestDecompressEmptyPayload(t *testing.T) {
	t.Parallel()

	packed, err := Compress(nil, 1, EndianLittle)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	out, err := Decompress(packed, EndianLittle)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("decoded %d bytes, want 0", len(out))
	}
}

func TestDecompressErrors(t *testing.T) {
	t.Parallel()

	if _, err := Decompress([]byte{1, 2, 3}, EndianAuto); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}

	garbage := bytes.Repeat([]byte{0xff}, 64)
	if _, err := Decompress(garbage, EndianAuto); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}

	payload := bytes.Repeat([]byte("wrong order "), 50)
	packed, err := Compress(payload, 0xabcdef01, EndianLittle)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := Decompress(packed, EndianBig); err == nil {
		t.Fatal("decoding little-endian container as big-endian must fail")
	}
}

func TestCipherKeystream(t *testing.T) {
	t.Parallel()

	a := NewCipher(0x1234)
	b := NewCipher(0x1234)
	c := NewCipher(0x4321)

	differs := false
	for i := 0; i < 200; i++ {
		va, vb, vc := a.Next(), b.Next(), c.Next()
		if va != vb {
			t.Fatalf("word %d: same key produced %#x and %#x", i, va, vb)
		}
		if va != vc {
			differs = true
		}
	}
	if !differs {
		t.Fatal("different keys produced identical keystream")
	}

	data := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 40)
	orig := append([]byte{}, data...)
	NewCipher(77).XORWords(data, EndianBig)
	if bytes.Equal(data, orig) {
		t.Fatal("XORWords left data unchanged")
	}
	NewCipher(77).XORWords(data, EndianBig)
	if !bytes.Equal(data, orig) {
		t.Fatal("applying keystream twice must restore data")
	}
}

func TestNewKey(t *testing.T) {
	t.Parallel()

	seen := make(map[uint32]struct{})
	for i := 0; i < 8; i++ {
		key, err := NewKey()
		if err != nil {
			t.Fatalf("NewKey: %v", err)
		}
		seen[key] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatal("NewKey returned the same key repeatedly")
	}
}

func TestFileHelpers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "quest.bin")
	packed := filepath.Join(dir, "quest.prsd")
	out := filepath.Join(dir, "quest.out")

	data := bytes.Repeat([]byte{0x10, 0x20, 0x30}, 1000)
	if err := os.WriteFile(in, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := CompressFile(in, packed, 0xc0ffee, EndianBig); err != nil {
		t.Fatalf("CompressFile: %v", err)
	}

	hdr, err := DecompressFile(packed, out, EndianAuto)
	if err != nil {
		t.Fatalf("DecompressFile: %v", err)
	}
	if hdr.Endian != EndianBig || hdr.Key != 0xc0ffee {
		t.Fatalf("header=%+v", hdr)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("decoded file differs from source")
	}
}
