//go:build opencv

package imaging

import (
	"image"

	"gocv.io/x/gocv"
)

// Backend names the equalization implementation compiled into this binary.
const Backend = "opencv"

// equalizeAdaptive runs OpenCV's CLAHE. Falls back to the pure Go version if
// the Mat cannot be built from the buffer.
func equalizeAdaptive(gray *image.Gray, clipLimit float64, tiles int) *image.Gray {
	b := gray.Bounds()
	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, gray.Pix)
	if err != nil {
		return claheGo(gray, clipLimit, tiles)
	}
	defer src.Close()

	clahe := gocv.NewCLAHEWithParams(clipLimit, image.Point{X: tiles, Y: tiles})
	defer clahe.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	clahe.Apply(src, &dst)

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	copy(out.Pix, dst.ToBytes())
	return out
}
