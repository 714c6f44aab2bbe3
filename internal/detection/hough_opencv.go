//go:build opencv

package detection

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// findCircles runs OpenCV's HOUGH_GRADIENT on the masked region. Falls back to
// the pure Go transform if the Mat cannot be built from the buffer.
func findCircles(src *image.Gray, p HoughParams) []circle {
	b := src.Bounds()
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, src.Pix)
	if err != nil {
		return houghGradient(src, p)
	}
	defer mat.Close()

	circles := gocv.NewMat()
	defer circles.Close()

	gocv.HoughCirclesWithParams(mat, &circles, gocv.HoughGradient,
		1, p.MinDist, p.CannyHigh, float64(p.AccumulatorThreshold),
		p.MinRadius, p.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil
	}

	var found []circle
	for i := 0; i < circles.Cols(); i++ {
		if p.MaxCircles > 0 && len(found) >= p.MaxCircles {
			break
		}
		c := circle{
			X:      float64(circles.GetFloatAt(0, i*3)),
			Y:      float64(circles.GetFloatAt(0, i*3+1)),
			Radius: float64(circles.GetFloatAt(0, i*3+2)),
		}
		if p.mask.traces(c) {
			continue
		}
		found = append(found, c)
	}
	return found
}

// traces reports whether c is the mask's own boundary: concentric with it and
// at one of its radii.
func (a *annulus) traces(c circle) bool {
	if a == nil || math.Hypot(c.X-a.X, c.Y-a.Y) > 1.5 {
		return false
	}
	return math.Abs(c.Radius-a.Inner) <= maskMargin || math.Abs(c.Radius-a.Outer) <= maskMargin
}
