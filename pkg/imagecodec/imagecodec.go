// Package imagecodec decodes source image files into the flat pixel
// buffers the rendition encoder consumes. PNG and JPEG come from the
// standard decoders; BMP and TIFF piggyback on golang.org/x/image.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ErrUndecodable wraps decoder failures so callers can distinguish bad
// pixels from filesystem trouble.
var ErrUndecodable = errors.New("undecodable image")

// Image is a decoded bitmap: tightly packed RGBA rows.
type Image struct {
	Width    int
	Height   int
	RowBytes int
	Pixels   []byte
}

// Decode parses an encoded image stream.
func Decode(data []byte) (*Image, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return &Image{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		RowBytes: dst.Stride,
		Pixels:   dst.Pix,
	}, nil
}

// DecodeConfig reports an encoded stream's dimensions without decoding
// pixels.
func DecodeConfig(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return cfg.Width, cfg.Height, nil
}

// DecodeFile reads and decodes one image file.
func DecodeFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
