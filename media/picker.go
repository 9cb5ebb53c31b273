// Package media supplies image payloads for new posts.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"os"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedImage is returned for payloads that are not JPEG or PNG.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Picker produces zero or one compressed image payload. A nil payload with a
// nil error means the user dismissed the picker.
type Picker interface {
	Pick(ctx context.Context) ([]byte, error)
}

// Compressor re-encodes images as JPEG no wider than MaxWidth.
type Compressor struct {
	MaxWidth int
	Quality  int
}

// Compress decodes data, downsizes it when wider than MaxWidth and encodes JPEG.
func (c Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrUnsupportedImage)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}

	// never upscale
	if c.MaxWidth > 0 && img.Bounds().Dx() > c.MaxWidth {
		img = imaging.Resize(img, c.MaxWidth, 0, imaging.Lanczos)
	}

	quality := c.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FilePicker picks the image stored at Path. An empty Path means nothing was picked.
type FilePicker struct {
	Path string
	Compressor
}

// Pick implements Picker.
func (p FilePicker) Pick(ctx context.Context) ([]byte, error) {
	if p.Path == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return p.Compress(raw)
}

// Bytes is a Picker returning a fixed payload, used where the image was already
// received, e.g. from an upload.
type Bytes []byte

// Pick implements Picker.
func (b Bytes) Pick(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, nil
	}
	return []byte(b), nil
}
