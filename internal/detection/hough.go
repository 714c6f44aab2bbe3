package detection

import (
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// HoughParams configures the circle transform run at each candidate center.
//
// The names follow the usual gradient Hough parameters: CannyHigh is the upper
// Canny threshold (the lower one is half of it) and AccumulatorThreshold is the
// minimum vote count for a center, and the minimum number of supporting edge
// pixels for a radius.
type HoughParams struct {
	MinRadius            int     `json:"min_radius"`
	MaxRadius            int     `json:"max_radius"`
	MinDist              float64 `json:"min_dist"`
	CannyHigh            float64 `json:"canny_high"`
	AccumulatorThreshold int     `json:"accumulator_threshold"`
	MaxCircles           int     `json:"max_circles"`

	// mask is the annulus the source was cut to, if any.
	mask *annulus
}

// annulus is a mask applied to the transform's source, in source
// coordinates. Zeroing outside it leaves a circular step at both radii.
type annulus struct {
	X, Y         float64
	Inner, Outer float64
}

// maskMargin is how close, in pixels, an edge may lie to a mask radius before
// it is attributed to the mask step rather than the image.
const maskMargin = 3

// onBoundary reports whether (x, y) lies on the step left by the mask.
func (a *annulus) onBoundary(x, y float64) bool {
	if a == nil {
		return false
	}
	d := math.Hypot(x-a.X, y-a.Y)
	return math.Abs(d-a.Inner) <= maskMargin || math.Abs(d-a.Outer) <= maskMargin
}

// circle is a raw transform detection, before scoring.
type circle struct {
	X, Y   float64
	Radius float64
	Votes  int
}

// edgePoint is an edge pixel with its unit gradient, which points toward
// increasing intensity.
type edgePoint struct {
	x, y   float64
	ux, uy float64
}

const (
	// radiusWindow is the half-width, in pixels, of the window used to pick
	// the densest radius around a center.
	radiusWindow = 4

	// maxRingWidth is the widest distance, in pixels, between the two edges
	// of one ring.
	maxRingWidth = 12

	// refineIterations bounds the center fit.
	refineIterations = 8
)

// houghGradient finds circles with the gradient variant of the Hough
// transform.
//
// # Algorithm
//
//  1. Edge detection: Canny with thresholds CannyHigh/2 and CannyHigh. Edges
//     on the step of the source mask are dropped
//  2. Center voting: every edge pixel votes along its gradient line, in both
//     directions, for centers between MinRadius and MaxRadius away
//  3. Peak selection: the accumulator is smoothed with a 5x5 box, since
//     gradient directions are only accurate to a few degrees and votes land
//     on a plateau rather than one cell. Local maxima of the smoothed
//     accumulator whose raw votes reach AccumulatorThreshold are taken
//     strongest first
//  4. Center refinement: starting at the vote centroid of a peak, the densest
//     edge radius is found and an algebraic least-squares circle is fitted to
//     the edges near it; radius and fit alternate until the center settles.
//     Refined centers closer than MinDist to an accepted circle are skipped
//  5. Radius estimation: the centerline lies midway between the ring's two
//     edges, one where intensity rises moving outward and one where it falls
//     (see ringRadius)
//
// Returns circles in the order they were accepted (strongest peak first).
func houghGradient(src *image.Gray, p HoughParams) []circle {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 || p.MaxRadius <= 0 || p.MaxRadius < p.MinRadius {
		return nil
	}

	edges := cannyEdges(src, p.CannyHigh/2, p.CannyHigh)

	var points []edgePoint
	acc := make([]int, width*height)

	minR := p.MinRadius
	if minR < 1 {
		minR = 1
	}
	for i, isEdge := range edges.edge {
		if !isEdge {
			continue
		}
		gx, gy := edges.gx[i], edges.gy[i]
		mag := math.Hypot(gx, gy)
		if mag == 0 {
			continue
		}
		x, y := i%width, i/width
		if p.mask.onBoundary(float64(x), float64(y)) {
			continue
		}
		ux, uy := gx/mag, gy/mag
		points = append(points, edgePoint{x: float64(x), y: float64(y), ux: ux, uy: uy})

		for _, sign := range [2]float64{1, -1} {
			prev := -1
			for r := minR; r <= p.MaxRadius; r++ {
				cx := int(math.Round(float64(x) + sign*float64(r)*ux))
				cy := int(math.Round(float64(y) + sign*float64(r)*uy))
				if cx < 0 || cx >= width || cy < 0 || cy >= height {
					break
				}
				idx := cy*width + cx
				if idx == prev {
					continue
				}
				acc[idx]++
				prev = idx
			}
		}
	}
	if len(points) == 0 {
		return nil
	}

	threshold := p.AccumulatorThreshold
	if threshold < 1 {
		threshold = 1
	}
	smooth := boxSmooth(acc, width, height, 2)
	var peaks []int
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			v := smooth[i]
			if v == 0 || v <= smooth[i-1] || v < smooth[i+1] || v <= smooth[i-width] || v < smooth[i+width] {
				continue
			}
			if windowMax(acc, width, height, x, y, 2) >= threshold {
				peaks = append(peaks, i)
			}
		}
	}
	sort.SliceStable(peaks, func(a, b int) bool {
		return smooth[peaks[a]] > smooth[peaks[b]]
	})

	maxCircles := p.MaxCircles
	maxPeaks := len(peaks)
	if maxCircles <= 0 {
		maxCircles = len(peaks)
	} else if maxPeaks > 4*maxCircles {
		maxPeaks = 4 * maxCircles
	}

	near := func(found []circle, x, y float64) bool {
		for _, f := range found {
			if math.Hypot(f.X-x, f.Y-y) < p.MinDist {
				return true
			}
		}
		return false
	}

	var found []circle
	for _, pi := range peaks[:maxPeaks] {
		if len(found) >= maxCircles {
			break
		}
		cx, cy := accumulatorCentroid(acc, width, height, pi)
		if near(found, cx, cy) {
			continue
		}
		c, ok := refineCircle(points, cx, cy, width, height, p, threshold)
		if !ok || near(found, c.X, c.Y) {
			continue
		}
		c.Votes = windowMax(acc, width, height, pi%width, pi/width, 2)
		found = append(found, c)
	}
	return found
}

// refineCircle fits a circle to the edge points around the center estimate
// (cx, cy). ok is false when too few edges support any radius in range.
func refineCircle(points []edgePoint, cx, cy float64, width, height int, p HoughParams, minSupport int) (circle, bool) {
	r, ok := densestRadius(points, cx, cy, p, minSupport)
	if !ok {
		return circle{}, false
	}

	// The first fit takes a wide band so both edges of a thick ring are
	// caught even from a center a few pixels off.
	band := 2*radiusWindow + 1.5
	for iter := 0; iter < refineIterations; iter++ {
		nx, ny, ok := fitCenter(points, cx, cy, r, band)
		if !ok || nx < 0 || ny < 0 || nx > float64(width-1) || ny > float64(height-1) {
			break
		}
		moved := math.Hypot(nx-cx, ny-cy)
		cx, cy = nx, ny
		band = radiusWindow + 1.5
		if r, ok = densestRadius(points, cx, cy, p, minSupport); !ok {
			return circle{}, false
		}
		if moved < 0.01 {
			break
		}
	}

	radius, support := ringRadius(points, cx, cy, r)
	if support < minSupport || radius < float64(p.MinRadius)-0.5 || radius > float64(p.MaxRadius)+0.5 {
		return circle{}, false
	}
	return circle{X: cx, Y: cy, Radius: radius}, true
}

// densestRadius histograms edge distances from (cx, cy) in 1-pixel bins over
// [MinRadius, MaxRadius] and returns the mean-shifted center of the densest
// ±radiusWindow window. Support is normalized by radius so larger circles do
// not win by perimeter alone.
func densestRadius(points []edgePoint, cx, cy float64, p HoughParams, minSupport int) (float64, bool) {
	bins := p.MaxRadius - p.MinRadius + 1
	hist := make([]int, bins)
	distances := make([]float64, 0, len(points))
	for _, pt := range points {
		d := math.Hypot(pt.x-cx, pt.y-cy)
		if d < float64(p.MinRadius) || d > float64(p.MaxRadius)+0.5 {
			continue
		}
		k := int(math.Round(d)) - p.MinRadius
		if k >= bins {
			k = bins - 1
		}
		hist[k]++
		distances = append(distances, d)
	}

	bestK, bestScore := -1, 0.0
	for k := 0; k < bins; k++ {
		support := 0
		for j := k - radiusWindow; j <= k+radiusWindow; j++ {
			if j >= 0 && j < bins {
				support += hist[j]
			}
		}
		r := math.Max(1, float64(p.MinRadius+k))
		if score := float64(support) / r; support >= minSupport && score > bestScore {
			bestK, bestScore = k, score
		}
	}
	if bestK < 0 {
		return 0, false
	}
	r, support := meanShiftRadius(distances, float64(p.MinRadius+bestK))
	return r, support >= minSupport
}

// fitCenter fits x² + y² + Dx + Ey + F = 0 by least squares to the edge
// points whose distance from (cx, cy) is within band of r, and returns the
// fitted center (-D/2, -E/2). Coordinates are taken relative to (cx, cy) to
// keep the normal equations well conditioned.
func fitCenter(points []edgePoint, cx, cy, r, band float64) (float64, float64, bool) {
	var sxx, sxy, syy, sx, sy, sxz, syz, sz float64
	n := 0
	for _, pt := range points {
		dx, dy := pt.x-cx, pt.y-cy
		z := dx*dx + dy*dy
		if math.Abs(math.Sqrt(z)-r) > band {
			continue
		}
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
		sx += dx
		sy += dy
		sxz += dx * z
		syz += dy * z
		sz += z
		n++
	}
	if n < 3 {
		return cx, cy, false
	}

	a := mat.NewDense(3, 3, []float64{
		sxx, sxy, sx,
		sxy, syy, sy,
		sx, sy, float64(n),
	})
	rhs := mat.NewVecDense(3, []float64{-sxz, -syz, -sz})
	var sol mat.VecDense
	if err := sol.SolveVec(a, rhs); err != nil {
		return cx, cy, false
	}
	nx := cx - sol.AtVec(0)/2
	ny := cy - sol.AtVec(1)/2
	if math.IsNaN(nx) || math.IsNaN(ny) || math.IsInf(nx, 0) || math.IsInf(ny, 0) {
		return cx, cy, false
	}
	return nx, ny, true
}

// ringRadius returns the centerline radius of the ring nearest r around
// (cx, cy), and how many edge points support it.
//
// Edge points are split by polarity: rising where intensity increases moving
// outward, falling where it decreases. A bright ring is a rising edge inside
// a falling one, a dark ring the reverse, the two at most maxRingWidth apart;
// the centerline lies midway between them. Bright pairs are preferred, then
// dark ones. When neither side of a pair has half the support the densest
// cluster near r is used on its own.
func ringRadius(points []edgePoint, cx, cy, r float64) (float64, int) {
	lo := math.Max(0, math.Floor(r-maxRingWidth))
	bins := int(math.Ceil(r+maxRingWidth)-lo) + 1
	riseHist := make([]int, bins)
	fallHist := make([]int, bins)
	var rising, falling, all []float64
	for _, pt := range points {
		dx, dy := pt.x-cx, pt.y-cy
		d := math.Hypot(dx, dy)
		if d < lo || d > lo+float64(bins-1) {
			continue
		}
		k := int(math.Round(d - lo))
		if k >= bins {
			k = bins - 1
		}
		all = append(all, d)
		if pt.ux*dx+pt.uy*dy >= 0 {
			rising = append(rising, d)
			riseHist[k]++
		} else {
			falling = append(falling, d)
			fallHist[k]++
		}
	}
	single := func() (float64, int) {
		return meanShiftRadius(all, r)
	}
	if len(rising) == 0 || len(falling) == 0 {
		return single()
	}

	rise := smoothBins(riseHist)
	fall := smoothBins(fallHist)
	total := len(all)
	for _, bright := range []bool{true, false} {
		inner, outer := rise, fall
		innerD, outerD := rising, falling
		if !bright {
			inner, outer = fall, rise
			innerD, outerD = falling, rising
		}

		bestA, bestB, bestScore, bestOff := -1, -1, 0, math.Inf(1)
		for a := 0; a < bins; a++ {
			for b := a + 1; b < bins && b-a <= maxRingWidth; b++ {
				score := min(inner[a], outer[b])
				if score == 0 {
					continue
				}
				off := math.Abs(lo+float64(a+b)/2 - r)
				if score > bestScore || (score == bestScore && off < bestOff) {
					bestA, bestB, bestScore, bestOff = a, b, score, off
				}
			}
		}
		if bestA < 0 {
			continue
		}
		ra, na := meanShift(innerD, lo+float64(bestA), 1.5)
		rb, nb := meanShift(outerD, lo+float64(bestB), 1.5)
		if 2*min(na, nb) < max(na, nb) || 4*(na+nb) < total {
			continue
		}
		return (ra + rb) / 2, na + nb
	}
	return single()
}

// smoothBins sums each histogram bin with its two neighbors.
func smoothBins(h []int) []int {
	out := make([]int, len(h))
	for i := range h {
		for j := i - 1; j <= i+1; j++ {
			if j >= 0 && j < len(h) {
				out[i] += h[j]
			}
		}
	}
	return out
}

// boxSmooth returns the mean of acc over the (2*half+1)² window around each
// cell, clipped to the grid.
func boxSmooth(acc []int, width, height, half int) []float64 {
	rows := make([]float64, len(acc))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for dx := -half; dx <= half; dx++ {
				if xx := x + dx; xx >= 0 && xx < width {
					sum += float64(acc[y*width+xx])
				}
			}
			rows[y*width+x] = sum
		}
	}
	out := make([]float64, len(acc))
	area := float64((2*half + 1) * (2*half + 1))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			for dy := -half; dy <= half; dy++ {
				if yy := y + dy; yy >= 0 && yy < height {
					sum += rows[yy*width+x]
				}
			}
			out[y*width+x] = sum / area
		}
	}
	return out
}

// windowMax is the largest raw vote count within half cells of (x0, y0).
func windowMax(acc []int, width, height, x0, y0, half int) int {
	best := 0
	for y := max(0, y0-half); y <= min(height-1, y0+half); y++ {
		for x := max(0, x0-half); x <= min(width-1, x0+half); x++ {
			best = max(best, acc[y*width+x])
		}
	}
	return best
}

// accumulatorCentroid returns the vote-weighted centroid around accumulator
// cell i. The window is re-centered once on the first estimate, so a peak
// split across two cells still resolves to the point between them.
func accumulatorCentroid(acc []int, width, height, i int) (float64, float64) {
	x0, y0 := i%width, i/width
	cx, cy, ok := windowCentroid(acc, width, height, x0, y0)
	if !ok {
		return float64(x0), float64(y0)
	}
	if nx, ny, ok := windowCentroid(acc, width, height, int(math.Round(cx)), int(math.Round(cy))); ok {
		return nx, ny
	}
	return cx, cy
}

// windowCentroid is the vote-weighted centroid of the 5x5 window at (x0, y0).
func windowCentroid(acc []int, width, height, x0, y0 int) (float64, float64, bool) {
	var sx, sy, sw float64
	for dy := -2; dy <= 2; dy++ {
		for dx := -2; dx <= 2; dx++ {
			x, y := x0+dx, y0+dy
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			w := float64(acc[y*width+x])
			sx += w * float64(x)
			sy += w * float64(y)
			sw += w
		}
	}
	if sw == 0 {
		return 0, 0, false
	}
	return sx / sw, sy / sw, true
}

// meanShiftRadius is meanShift with a ±radiusWindow window.
func meanShiftRadius(distances []float64, r float64) (float64, int) {
	return meanShift(distances, r, radiusWindow)
}

// meanShift moves r to the mean of the distances within window of it until it
// settles. Returns the final value and how many distances supported it.
func meanShift(distances []float64, r, window float64) (float64, int) {
	support := 0
	for iter := 0; iter < 8; iter++ {
		var sum float64
		n := 0
		for _, d := range distances {
			if math.Abs(d-r) <= window {
				sum += d
				n++
			}
		}
		support = n
		if n == 0 {
			return r, 0
		}
		next := sum / float64(n)
		if math.Abs(next-r) < 0.01 {
			return next, n
		}
		r = next
	}
	return r, support
}
