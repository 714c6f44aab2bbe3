package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidInput is returned when an image or grid is missing or malformed.
var ErrInvalidInput = errors.New("invalid input image")

// Grid is an immutable 8-bit intensity buffer.
//
// A Grid holds either three interleaved channels (R, G, B) for a raw capture
// or a single channel for an enhanced intensity map. Operations that transform
// a Grid always return a new value; the receiver is never modified.
type Grid struct {
	width    int
	height   int
	channels int
	pix      []uint8
}

// NewGrid builds a Grid from row-major interleaved samples.
//
// The pixel slice is copied, so later writes by the caller do not leak into
// the grid. channels must be 1 or 3 and len(pix) must equal
// width*height*channels.
func NewGrid(width, height, channels int, pix []uint8) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, width, height)
	}
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrInvalidInput, channels)
	}
	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("%w: expected %d samples, got %d", ErrInvalidInput, width*height*channels, len(pix))
	}
	buf := make([]uint8, len(pix))
	copy(buf, pix)
	return &Grid{width: width, height: height, channels: channels, pix: buf}, nil
}

// GridFromImage converts a decoded image into a Grid.
//
// *image.Gray sources become single-channel grids; everything else is
// flattened to three 8-bit RGB channels (alpha is discarded).
func GridFromImage(img image.Image) (*Grid, error) {
	if img == nil {
		return nil, ErrInvalidInput
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidInput)
	}

	if gray, ok := img.(*image.Gray); ok {
		pix := make([]uint8, width*height)
		for y := 0; y < height; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			copy(pix[y*width:], row)
		}
		return &Grid{width: width, height: height, channels: 1, pix: pix}, nil
	}
	if gray16, ok := img.(*image.Gray16); ok {
		pix := make([]uint8, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				pix[y*width+x] = uint8(gray16.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y >> 8)
			}
		}
		return &Grid{width: width, height: height, channels: 1, pix: pix}, nil
	}

	pix := make([]uint8, width*height*3)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			pix[i] = uint8(r >> 8)
			pix[i+1] = uint8(g >> 8)
			pix[i+2] = uint8(b >> 8)
			i += 3
		}
	}
	return &Grid{width: width, height: height, channels: 3, pix: pix}, nil
}

// Width returns the grid width in pixels.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in pixels.
func (g *Grid) Height() int { return g.height }

// Channels returns 1 for intensity grids and 3 for RGB grids.
func (g *Grid) Channels() int { return g.channels }

// InBounds reports whether (x, y) addresses a pixel of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Intensity returns the first channel at (x, y). For single-channel grids this
// is the pixel intensity. The caller must ensure the coordinates are in bounds.
func (g *Grid) Intensity(x, y int) uint8 {
	return g.pix[(y*g.width+x)*g.channels]
}

// RGB returns the three channels at (x, y). Single-channel grids report the
// intensity in all three components.
func (g *Grid) RGB(x, y int) (r, gr, b uint8) {
	i := (y*g.width + x) * g.channels
	if g.channels == 1 {
		return g.pix[i], g.pix[i], g.pix[i]
	}
	return g.pix[i], g.pix[i+1], g.pix[i+2]
}

// Gray returns a fresh *image.Gray copy of a single-channel grid.
// Multi-channel grids are reduced to luminance first.
func (g *Grid) Gray() *image.Gray {
	if g.channels == 3 {
		return luminance(g)
	}
	out := image.NewGray(image.Rect(0, 0, g.width, g.height))
	copy(out.Pix, g.pix)
	return out
}

// Image returns the grid as a standard library image: *image.Gray for
// single-channel grids and *image.RGBA for RGB grids.
func (g *Grid) Image() image.Image {
	if g.channels == 1 {
		return g.Gray()
	}
	out := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			r, gr, b := g.RGB(x, y)
			out.SetRGBA(x, y, color.RGBA{R: r, G: gr, B: b, A: 255})
		}
	}
	return out
}

// gridFromGray wraps an *image.Gray whose stride equals its width without
// copying. Only used for buffers this package allocated itself.
func gridFromGray(gray *image.Gray) *Grid {
	b := gray.Bounds()
	return &Grid{width: b.Dx(), height: b.Dy(), channels: 1, pix: gray.Pix}
}
