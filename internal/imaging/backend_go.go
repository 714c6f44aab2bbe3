//go:build !opencv

package imaging

import "image"

// Backend names the equalization implementation compiled into this binary.
const Backend = "go"

func equalizeAdaptive(gray *image.Gray, clipLimit float64, tiles int) *image.Gray {
	return claheGo(gray, clipLimit, tiles)
}
