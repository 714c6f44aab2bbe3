//go:build !opencv

package detection

import "image"

// findCircles runs the circle transform compiled into this binary.
func findCircles(src *image.Gray, p HoughParams) []circle {
	return houghGradient(src, p)
}
