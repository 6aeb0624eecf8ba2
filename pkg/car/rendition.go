package car

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/carton-io/carton/pkg/car/compression"
)

const (
	renditionMagic   = "mtci"
	pixelBlockMagic  = "MLEC"
	renditionVersion = 1

	renditionNameSize   = 128
	renditionHeaderSize = 4 + 11*4 + renditionNameSize
	pixelBlockBase      = 4 + 4 + 4
)

// Rendition flag bits.
const (
	RenditionFlagFPO                = 1 << 0
	RenditionFlagExcludedFromFilter = 1 << 1
)

// PixelFormat tags the layout of a rendition's decoded bytes.
type PixelFormat uint32

const (
	PixelFormatARGB PixelFormat = 'A'<<24 | 'R'<<16 | 'G'<<8 | 'B'
	PixelFormatGA8  PixelFormat = 'G'<<24 | 'A'<<16 | '8'<<8 | ' '
	PixelFormatData PixelFormat = 'D'<<24 | 'A'<<16 | 'T'<<8 | 'A'
	PixelFormatJPEG PixelFormat = 'J'<<24 | 'P'<<16 | 'E'<<8 | 'G'
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatARGB:
		return "ARGB"
	case PixelFormatGA8:
		return "GA8"
	case PixelFormatData:
		return "DATA"
	case PixelFormatJPEG:
		return "JPEG"
	default:
		return fmt.Sprintf("format(%#08x)", uint32(f))
	}
}

// MetadataTag labels one metadata block inside a rendition payload.
type MetadataTag uint32

const (
	MetadataSlices       MetadataTag = 1001
	MetadataMetrics      MetadataTag = 1003
	MetadataComposition  MetadataTag = 1004
	MetadataUTI          MetadataTag = 1005
	MetadataBitmapInfo   MetadataTag = 1006
	MetadataBytesPerRow  MetadataTag = 1007
	MetadataReference    MetadataTag = 1010
	MetadataAlphaCropped MetadataTag = 1011
)

// MetadataBlock is one (tag, bytes) pair carried alongside pixel data.
type MetadataBlock struct {
	Tag  MetadataTag
	Data []byte
}

// Rendition is one decoded variant payload. Data holds the uncompressed
// bytes: Height*RowBytes pixels for bitmap formats, the raw stream for
// DATA and JPEG.
type Rendition struct {
	Name         string
	Flags        uint32
	Width        uint32
	Height       uint32
	ScaleFactor  uint32
	Format       PixelFormat
	ColorSpaceID uint32
	RowBytes     uint32
	Metadata     []MetadataBlock
	Data         []byte

	// Compression records the pixel block's algorithm tag. Set on
	// unpack; ignored by Pack, which chooses its own.
	Compression compression.Algorithm
}

// Pack serializes the rendition with an explicit pixel algorithm. RLE is
// applied to per-row deltas for bitmap formats.
func (r *Rendition) Pack(alg compression.Algorithm) ([]byte, error) {
	codec, err := compression.Get(alg)
	if err != nil {
		return nil, err
	}
	pixels := r.Data
	if alg == compression.RLE && r.deltaEligible() {
		pixels = deltaRows(pixels, int(r.RowBytes))
	}
	compressed, err := codec.Compress(pixels)
	if err != nil {
		return nil, err
	}

	infoLen := 0
	for _, m := range r.Metadata {
		infoLen += 8 + len(m.Data)
	}
	payloadLen := pixelBlockBase + len(compressed)

	buf := make([]byte, renditionHeaderSize+infoLen+payloadLen)
	copy(buf[0:4], renditionMagic)
	binary.LittleEndian.PutUint32(buf[4:8], renditionVersion)
	binary.LittleEndian.PutUint32(buf[8:12], r.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], r.Width)
	binary.LittleEndian.PutUint32(buf[16:20], r.Height)
	binary.LittleEndian.PutUint32(buf[20:24], r.ScaleFactor)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(r.Format))
	binary.LittleEndian.PutUint32(buf[28:32], r.ColorSpaceID)
	binary.LittleEndian.PutUint32(buf[32:36], r.RowBytes)
	binary.LittleEndian.PutUint32(buf[36:40], uint32(len(r.Metadata)))
	binary.LittleEndian.PutUint32(buf[40:44], uint32(infoLen))
	binary.LittleEndian.PutUint32(buf[44:48], uint32(payloadLen))
	name := r.Name
	if len(name) > renditionNameSize-1 {
		name = name[:renditionNameSize-1]
	}
	copy(buf[48:48+renditionNameSize], name)

	off := renditionHeaderSize
	for _, m := range r.Metadata {
		binary.LittleEndian.PutUint32(buf[off:], uint32(m.Tag))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(len(m.Data)))
		copy(buf[off+8:], m.Data)
		off += 8 + len(m.Data)
	}
	copy(buf[off:off+4], pixelBlockMagic)
	binary.LittleEndian.PutUint32(buf[off+4:], uint32(alg))
	binary.LittleEndian.PutUint32(buf[off+8:], uint32(len(pixels)))
	copy(buf[off+pixelBlockBase:], compressed)
	return buf, nil
}

// PackBest serializes the rendition under the standard encoder policy:
// JPEG streams keep their tag, raw data stores verbatim, and bitmap
// pixels go through palette or zlib when compression is requested,
// otherwise RLE of row deltas with a verbatim fallback when RLE does
// not shrink the block.
func (r *Rendition) PackBest(compressPixels bool) ([]byte, error) {
	switch r.Format {
	case PixelFormatJPEG:
		return r.Pack(compression.JPEGLossy)
	case PixelFormatData:
		return r.Pack(compression.None)
	}
	if compressPixels {
		if r.Format == PixelFormatARGB {
			packed, err := r.Pack(compression.Palette)
			if err == nil {
				return packed, nil
			}
			if !isUnsuitable(err) {
				return nil, err
			}
		}
		return r.Pack(compression.Zlib)
	}
	packed, err := r.Pack(compression.RLE)
	if err != nil {
		return nil, err
	}
	plain, err := r.Pack(compression.None)
	if err != nil {
		return nil, err
	}
	if len(plain) < len(packed) {
		return plain, nil
	}
	return packed, nil
}

func isUnsuitable(err error) bool {
	return errors.Is(err, compression.ErrUnsuitable)
}

// UnpackRendition parses a rendition payload and decodes its pixel
// block. Unregistered algorithm tags yield ErrUnsupported; use
// InspectRendition when only the header matters.
func UnpackRendition(data []byte) (*Rendition, error) {
	r, pixel, err := parseRendition(data)
	if err != nil {
		return nil, err
	}
	codec, err := compression.Get(r.Compression)
	if err != nil {
		return nil, err
	}
	uncompressedSize := int(binary.LittleEndian.Uint32(pixel[8:12]))
	decoded, err := codec.Decompress(pixel[pixelBlockBase:], uncompressedSize)
	if err != nil {
		return nil, err
	}
	if r.Compression == compression.RLE && r.deltaEligible() {
		decoded = undeltaRows(decoded, int(r.RowBytes))
	}
	if r.Format == PixelFormatARGB || r.Format == PixelFormatGA8 {
		if want := int(r.Height) * int(r.RowBytes); len(decoded) != want {
			return nil, fmt.Errorf("%w: %d decoded bytes for %dx%d rows of %d",
				ErrCorrupt, len(decoded), r.Width, r.Height, r.RowBytes)
		}
	}
	r.Data = decoded
	return r, nil
}

// InspectRendition parses the header and metadata blocks without
// decoding pixels. Data is left nil; Compression reports the stored tag
// even when no codec is registered for it.
func InspectRendition(data []byte) (*Rendition, error) {
	r, _, err := parseRendition(data)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func parseRendition(data []byte) (*Rendition, []byte, error) {
	if len(data) < renditionHeaderSize {
		return nil, nil, fmt.Errorf("%w: short rendition payload (%d bytes)", ErrCorrupt, len(data))
	}
	if string(data[0:4]) != renditionMagic {
		return nil, nil, fmt.Errorf("%w: bad rendition magic %q", ErrCorrupt, data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != renditionVersion {
		return nil, nil, fmt.Errorf("%w: rendition version %d", ErrUnsupported, v)
	}
	r := &Rendition{
		Flags:        binary.LittleEndian.Uint32(data[8:12]),
		Width:        binary.LittleEndian.Uint32(data[12:16]),
		Height:       binary.LittleEndian.Uint32(data[16:20]),
		ScaleFactor:  binary.LittleEndian.Uint32(data[20:24]),
		Format:       PixelFormat(binary.LittleEndian.Uint32(data[24:28])),
		ColorSpaceID: binary.LittleEndian.Uint32(data[28:32]),
		RowBytes:     binary.LittleEndian.Uint32(data[32:36]),
	}
	metaCount := int(binary.LittleEndian.Uint32(data[36:40]))
	infoLen := int(binary.LittleEndian.Uint32(data[40:44]))
	payloadLen := int(binary.LittleEndian.Uint32(data[44:48]))
	name := data[48 : 48+renditionNameSize]
	for i, b := range name {
		if b == 0 {
			name = name[:i]
			break
		}
	}
	r.Name = string(name)

	if renditionHeaderSize+infoLen+payloadLen > len(data) {
		return nil, nil, fmt.Errorf("%w: rendition %q declares %d+%d bytes past end",
			ErrCorrupt, r.Name, infoLen, payloadLen)
	}
	info := data[renditionHeaderSize : renditionHeaderSize+infoLen]
	for i := 0; i < metaCount; i++ {
		if len(info) < 8 {
			return nil, nil, fmt.Errorf("%w: rendition %q metadata truncated", ErrCorrupt, r.Name)
		}
		tag := MetadataTag(binary.LittleEndian.Uint32(info[0:4]))
		length := int(binary.LittleEndian.Uint32(info[4:8]))
		if len(info) < 8+length {
			return nil, nil, fmt.Errorf("%w: rendition %q metadata block %d truncated", ErrCorrupt, r.Name, i)
		}
		r.Metadata = append(r.Metadata, MetadataBlock{Tag: tag, Data: info[8 : 8+length]})
		info = info[8+length:]
	}

	pixel := data[renditionHeaderSize+infoLen : renditionHeaderSize+infoLen+payloadLen]
	if len(pixel) < pixelBlockBase {
		return nil, nil, fmt.Errorf("%w: rendition %q pixel block truncated", ErrCorrupt, r.Name)
	}
	if string(pixel[0:4]) != pixelBlockMagic {
		return nil, nil, fmt.Errorf("%w: rendition %q bad pixel block magic %q", ErrCorrupt, r.Name, pixel[0:4])
	}
	r.Compression = compression.Algorithm(binary.LittleEndian.Uint32(pixel[4:8]))
	return r, pixel, nil
}

func (r *Rendition) deltaEligible() bool {
	return (r.Format == PixelFormatARGB || r.Format == PixelFormatGA8) && r.RowBytes > 0
}

// deltaRows subtracts each row from its predecessor so that vertically
// uniform images collapse into long zero runs for the RLE pass.
func deltaRows(data []byte, rowBytes int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	for i := rowBytes; i < len(data); i++ {
		out[i] = data[i] - data[i-rowBytes]
	}
	return out
}

func undeltaRows(data []byte, rowBytes int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	for i := rowBytes; i < len(data); i++ {
		out[i] = data[i] + out[i-rowBytes]
	}
	return out
}
