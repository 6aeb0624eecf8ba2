package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

func init() {
	Register(zlibCodec{})
}

// zlibCodec wraps deflate with the zlib framing the archive format uses.
type zlibCodec struct{}

func (zlibCodec) Algorithm() Algorithm { return Zlib }

func (zlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (zlibCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(uncompressedSize)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := checkSize(Zlib, len(out), uncompressedSize); err != nil {
		return nil, err
	}
	return out, nil
}
