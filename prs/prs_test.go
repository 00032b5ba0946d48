package prs

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()

	for name, data := range testInputs() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			packed := Compress(data)
			if limit := MaxCompressedSize(len(data)); len(packed) > limit {
				t.Fatalf("compressed size=%d exceeds bound %d", len(packed), limit)
			}

			out, err := Decompress(packed, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(data))
			}

			size, err := DecompressSize(packed)
			if err != nil {
				t.Fatalf("DecompressSize: %v", err)
			}
			if size != len(data) {
				t.Fatalf("DecompressSize=%d, want %d", size, len(data))
			}
		})
	}
}

func TestArchiveRawRoundTrip(t *testing.T) {
	t.Parallel()

	for name, data := range testInputs() {
		raw := ArchiveRaw(data)
		if len(raw) != MaxCompressedSize(len(data)) {
			t.Fatalf("%s: ArchiveRaw size=%d, want %d", name, len(raw), MaxCompressedSize(len(data)))
		}

		out, err := Decompress(raw, -1)
		if err != nil {
			t.Fatalf("%s: Decompress raw: %v", name, err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("%s: raw round trip mismatch", name)
		}
	}
}

func TestCompressEmpty(t *testing.T) {
	t.Parallel()

	packed := Compress(nil)
	want := []byte{0x02, 0x00, 0x00}
	if !bytes.Equal(packed, want) {
		t.Fatalf("Compress(nil)=% x, want % x", packed, want)
	}

	out, err := Decompress(packed, 0)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("decoded %d bytes, want 0", len(out))
	}
}

func TestArchiveRawLayout(t *testing.T) {
	t.Parallel()

	got := ArchiveRaw([]byte("A"))
	want := []byte{0x05, 'A', 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("ArchiveRaw(A)=% x, want % x", got, want)
	}
}

func TestDecompressOverlappingMatch(t *testing.T) {
	t.Parallel()

	// literal 'a', short match distance 1 length 5, end marker
	stream := []byte{0x59, 'a', 0xff, 0x00, 0x00}
	out, err := Decompress(stream, 6)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != "aaaaaa" {
		t.Fatalf("got %q, want %q", out, "aaaaaa")
	}
}

func TestDecompressAcceptsFullWindow(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	prefix := make([]byte, MaxDistance)
	for i := range prefix {
		prefix[i] = byte(rng.Uint32())
	}

	e := newEncoder(MaxCompressedSize(len(prefix)) + 8)
	for _, b := range prefix {
		e.literal(b)
	}
	e.match(MaxDistance, 3)
	e.end()

	out, err := Decompress(e.out, len(prefix)+3)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out[len(prefix):], prefix[:3]) {
		t.Fatalf("tail=% x, want % x", out[len(prefix):], prefix[:3])
	}
}

func TestDecompressCorruptStream(t *testing.T) {
	t.Parallel()

	truncated := ArchiveRaw([]byte("abc"))
	truncated = truncated[:len(truncated)-2]

	tests := map[string][]byte{
		"empty input":           nil,
		"short match at start":  {0x00, 0xff},
		"long match too far":    {0x05, 'A', 0x09, 0xfc},
		"missing end marker":    truncated,
		"truncated long match":  {0x02, 0x10},
		"truncated control run": {0xff, 'a', 'b'},
	}

	for name, stream := range tests {
		if _, err := Decompress(stream, -1); !errors.Is(err, ErrCorruptStream) {
			t.Fatalf("%s: expected ErrCorruptStream, got %v", name, err)
		}
		if _, err := DecompressSize(stream); !errors.Is(err, ErrCorruptStream) {
			t.Fatalf("%s: DecompressSize expected ErrCorruptStream, got %v", name, err)
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("size check "), 64)
	packed := Compress(data)

	for _, expected := range []int{len(data) - 1, len(data) + 1, 0} {
		if _, err := Decompress(packed, expected); !errors.Is(err, ErrSizeMismatch) {
			t.Fatalf("expected=%d: want ErrSizeMismatch, got %v", expected, err)
		}
	}
}

func TestCompressUsesMatches(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{0}, 4096)
	packed := Compress(data)
	if len(packed) > 64 {
		t.Fatalf("zero run compressed to %d bytes, expected long matches", len(packed))
	}

	rng := rand.New(rand.NewPCG(3, 5))
	block := make([]byte, 5000)
	for i := range block {
		block[i] = byte(rng.Uint32())
	}

	twice := append(append([]byte{}, block...), block...)
	packed = Compress(twice)
	if len(packed) > MaxCompressedSize(len(block))+256 {
		t.Fatalf("repeated block compressed to %d bytes, distance matches not used", len(packed))
	}
}

func TestCompressWindowEdge(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	block := make([]byte, 8192)
	for i := range block {
		block[i] = byte(rng.Uint32())
	}

	testCases := []struct {
		name      string
		prefix    int
		matchable bool
	}{
		{name: "distance 8191", prefix: encodeMaxDistance, matchable: true},
		{name: "distance 8192", prefix: MaxDistance, matchable: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// 600 repeated bytes need three matches at the same distance, longer than one match allows.
			data := append([]byte{}, block[:tc.prefix]...)
			data = append(data, block[:600]...)
			data = append(data, bytes.Repeat([]byte{0x5a}, 1000)...)

			packed := Compress(data)
			out, err := Decompress(packed, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Fatal("round trip mismatch")
			}

			// The run of 1000 bytes costs a few long matches either way.
			withMatches := MaxCompressedSize(tc.prefix) + 64
			if tc.matchable && len(packed) > withMatches {
				t.Fatalf("compressed size=%d, want <= %d: window edge match not used", len(packed), withMatches)
			}
			if !tc.matchable && len(packed) <= withMatches {
				t.Fatalf("compressed size=%d: match beyond encoder window", len(packed))
			}
		})
	}
}

func TestFileHelpers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.bin")
	packed := filepath.Join(dir, "plain.prs")
	restored := filepath.Join(dir, "restored.bin")

	data := bytes.Repeat([]byte("file helper payload "), 100)
	if err := os.WriteFile(plain, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := CompressFile(plain, packed); err != nil {
		t.Fatalf("CompressFile: %v", err)
	}

	n, err := DecompressFile(packed, restored)
	if err != nil {
		t.Fatalf("DecompressFile: %v", err)
	}
	if n != len(data) {
		t.Fatalf("decoded size=%d, want %d", n, len(data))
	}

	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("restored file differs from source")
	}
}

func FuzzDecompress(f *testing.F) {
	f.Add([]byte{0x02, 0x00, 0x00})
	f.Add([]byte{0x59, 'a', 0xff, 0x00, 0x00})
	f.Add(Compress([]byte("fuzz seed fuzz seed fuzz seed")))

	f.Fuzz(func(t *testing.T, stream []byte) {
		out, err := Decompress(stream, -1)
		if err != nil {
			return
		}

		size, err := DecompressSize(stream)
		if err != nil {
			t.Fatalf("DecompressSize failed on stream Decompress accepted: %v", err)
		}
		if size != len(out) {
			t.Fatalf("DecompressSize=%d, decoded %d", size, len(out))
		}
	})
}

// testInputs returns representative buffers for round-trip checks.
func testInputs() map[string][]byte {
	rng := rand.New(rand.NewPCG(1, 2))
	random := make([]byte, 64*1024)
	for i := range random {
		random[i] = byte(rng.Uint32())
	}

	text := bytes.Repeat([]byte("Phantasy Star Online archive payload. "), 2000)
	mixed := make([]byte, 0, 40000)
	for i := 0; len(mixed) < 40000; i++ {
		if i%3 == 0 {
			mixed = append(mixed, random[i%len(random):min(i%len(random)+97, len(random))]...)
			continue
		}
		mixed = append(mixed, text[:(i*37)%500+2]...)
	}

	return map[string][]byte{
		"empty":      {},
		"one byte":   {0x42},
		"two bytes":  {0x42, 0x42},
		"short run":  bytes.Repeat([]byte{0xaa}, 7),
		"zeros":      make([]byte, 100000),
		"text":       text,
		"random":     random,
		"mixed":      mixed,
		"period two": bytes.Repeat([]byte{1, 2}, 3000),
		"long text":  bytes.Repeat([]byte("abcdefghijklmnopqrstuvwxyz0123456789"), 300),
	}
}
