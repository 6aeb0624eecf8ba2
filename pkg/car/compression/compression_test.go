package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func roundTrip(t *testing.T, a Algorithm, data []byte) []byte {
	t.Helper()
	codec, err := Get(a)
	if err != nil {
		t.Fatalf("Get(%v): %v", a, err)
	}
	packed, err := codec.Compress(data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := codec.Decompress(packed, len(data))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(data))
	}
	return packed
}

func TestRoundTrips(t *testing.T) {
	inputs := map[string][]byte{
		"empty":   {},
		"short":   []byte("abc"),
		"runs":    bytes.Repeat([]byte{0x55}, 1000),
		"mixed":   append(bytes.Repeat([]byte{1}, 200), []byte("literal tail data")...),
		"pixels":  bytes.Repeat([]byte{0x11, 0x22, 0x33, 0x44}, 64),
		"rising":  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		"boundary": func() []byte {
			var b []byte
			for i := 0; i < 300; i++ {
				b = append(b, byte(i%7))
			}
			return b
		}(),
	}
	for _, a := range []Algorithm{None, RLE, Zlib} {
		for name, data := range inputs {
			t.Run(a.String()+"/"+name, func(t *testing.T) {
				roundTrip(t, a, data)
			})
		}
	}
}

func TestRLECompressesRuns(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA}, 4096)
	packed := roundTrip(t, RLE, data)
	if len(packed) >= len(data) {
		t.Errorf("rle produced %d bytes for %d input bytes", len(packed), len(data))
	}
}

func TestRLERejectsTruncated(t *testing.T) {
	codec, _ := Get(RLE)
	cases := map[string][]byte{
		"literal_cut": {0x05, 'a', 'b'},
		"repeat_cut":  {0xFE},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := codec.Decompress(data, 16); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Decompress = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestPaletteRoundTrip(t *testing.T) {
	var data []byte
	for i := 0; i < 64; i++ {
		pixel := make([]byte, 4)
		binary.LittleEndian.PutUint32(pixel, uint32(i%16)*0x01010101)
		data = append(data, pixel...)
	}
	packed := roundTrip(t, Palette, data)
	colors := binary.LittleEndian.Uint32(packed[0:4])
	if colors != 16 {
		t.Errorf("palette has %d colors, want 16", colors)
	}
}

func TestPaletteUnsuitable(t *testing.T) {
	codec, _ := Get(Palette)

	t.Run("not_pixels", func(t *testing.T) {
		if _, err := codec.Compress([]byte{1, 2, 3}); !errors.Is(err, ErrUnsuitable) {
			t.Errorf("Compress = %v, want ErrUnsuitable", err)
		}
	})
	t.Run("too_many_colors", func(t *testing.T) {
		var data []byte
		for i := 0; i < 300; i++ {
			pixel := make([]byte, 4)
			binary.LittleEndian.PutUint32(pixel, uint32(i))
			data = append(data, pixel...)
		}
		if _, err := codec.Compress(data); !errors.Is(err, ErrUnsuitable) {
			t.Errorf("Compress = %v, want ErrUnsuitable", err)
		}
	})
}

func TestPaletteRejectsBadIndex(t *testing.T) {
	codec, _ := Get(Palette)
	block := make([]byte, 4+4+2)
	binary.LittleEndian.PutUint32(block[0:4], 1)
	block[8] = 0
	block[9] = 5
	if _, err := codec.Decompress(block, 8); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Decompress = %v, want ErrCorrupt", err)
	}
}

func TestZlibRejectsGarbage(t *testing.T) {
	codec, _ := Get(Zlib)
	if _, err := codec.Decompress([]byte("not zlib at all"), 10); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Decompress = %v, want ErrCorrupt", err)
	}
}

func TestSizeMismatchIsCorrupt(t *testing.T) {
	codec, _ := Get(None)
	if _, err := codec.Decompress([]byte("four"), 5); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Decompress = %v, want ErrCorrupt", err)
	}
}

func TestUnregisteredAlgorithms(t *testing.T) {
	for _, a := range []Algorithm{LZVN, LZFSE, ASTC, DXT} {
		if _, err := Get(a); !errors.Is(err, ErrUnsupported) {
			t.Errorf("Get(%v) = %v, want ErrUnsupported", a, err)
		}
	}
}
