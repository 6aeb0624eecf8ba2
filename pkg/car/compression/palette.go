package compression

import (
	"encoding/binary"
	"fmt"
)

func init() {
	Register(paletteCodec{})
}

// MaxPaletteColors bounds the color table; inputs with more unique pixels
// are unsuitable for palette encoding.
const MaxPaletteColors = 256

// paletteCodec encodes 32-bit pixels through a color table: a count, the
// table of 4-byte colors in first-seen order, then one table index per
// pixel.
type paletteCodec struct{}

func (paletteCodec) Algorithm() Algorithm { return Palette }

func (paletteCodec) Compress(data []byte) ([]byte, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: palette input is not 32-bit pixels", ErrUnsuitable)
	}
	type color uint32
	table := make(map[color]int)
	var order []color
	pixels := len(data) / 4
	indices := make([]byte, pixels)
	for i := 0; i < pixels; i++ {
		c := color(binary.LittleEndian.Uint32(data[4*i:]))
		idx, ok := table[c]
		if !ok {
			if len(order) == MaxPaletteColors {
				return nil, fmt.Errorf("%w: more than %d colors", ErrUnsuitable, MaxPaletteColors)
			}
			idx = len(order)
			table[c] = idx
			order = append(order, c)
		}
		indices[i] = byte(idx)
	}
	out := make([]byte, 4+4*len(order)+pixels)
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(order)))
	for i, c := range order {
		binary.LittleEndian.PutUint32(out[4+4*i:], uint32(c))
	}
	copy(out[4+4*len(order):], indices)
	return out, nil
}

func (paletteCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: short palette block", ErrCorrupt)
	}
	count := int(binary.LittleEndian.Uint32(data[0:4]))
	if count > MaxPaletteColors {
		return nil, fmt.Errorf("%w: palette declares %d colors", ErrCorrupt, count)
	}
	if len(data) < 4+4*count {
		return nil, fmt.Errorf("%w: palette table truncated", ErrCorrupt)
	}
	indices := data[4+4*count:]
	out := make([]byte, 0, uncompressedSize)
	for _, idx := range indices {
		if int(idx) >= count {
			return nil, fmt.Errorf("%w: palette index %d of %d", ErrCorrupt, idx, count)
		}
		out = append(out, data[4+4*int(idx):4+4*int(idx)+4]...)
	}
	if err := checkSize(Palette, len(out), uncompressedSize); err != nil {
		return nil, err
	}
	return out, nil
}
