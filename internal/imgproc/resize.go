// Package imgproc performs local image resizing: decode, flatten any
// alpha/palette source to opaque RGB, resample with Lanczos, re-encode as
// JPEG. Output is always lossy and alpha-less.
package imgproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

var (
	// ErrBadDimensions rejects non-positive or over-limit targets. It is
	// returned before any decode work happens.
	ErrBadDimensions = errors.New("invalid dimensions")

	// ErrDecode rejects sources that are not a decodable raster image.
	ErrDecode = errors.New("image decode failed")
)

const jpegQuality = 90

type Resizer struct {
	maxDim int
}

func NewResizer(maxDim int) *Resizer {
	if maxDim <= 0 {
		maxDim = 2048
	}
	return &Resizer{maxDim: maxDim}
}

func (r *Resizer) MaxDim() int {
	return r.maxDim
}

// Resize decodes src, scales it to exactly width x height and re-encodes
// it as JPEG. Dimension validation runs first so out-of-range requests
// cost nothing.
func (r *Resizer) Resize(src []byte, height, width int) ([]byte, error) {
	if height <= 0 || width <= 0 || height > r.maxDim || width > r.maxDim {
		return nil, fmt.Errorf("%w: size must be between 1x1 and %dx%d", ErrBadDimensions, r.maxDim, r.maxDim)
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if hasAlphaOrPalette(img) {
		img = flatten(img)
	}

	resized := imaging.Resize(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

func hasAlphaOrPalette(img image.Image) bool {
	switch img.ColorModel() {
	case color.YCbCrModel, color.GrayModel, color.Gray16Model, color.CMYKModel:
		return false
	}
	return true
}

// flatten composites the image over a white background, dropping alpha
// and palette the way the JPEG output requires.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}
