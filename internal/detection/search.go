package detection

import (
	"image"
	"math"
	"runtime"
	"sync"
)

// roiMargin pads the annulus crop so Sobel kernels at the outer limit see
// the zeroed background.
const roiMargin = 3

// candidateCenters returns the grid of centers to try: every offset from
// -halfSize to +halfSize in steps of 2 along both axes (x outer, y inner),
// followed by the initial center itself if the grid missed it.
func candidateCenters(initial image.Point, halfSize int) []image.Point {
	var centers []image.Point
	hasInitial := false
	for dx := -halfSize; dx <= halfSize; dx += 2 {
		for dy := -halfSize; dy <= halfSize; dy += 2 {
			if dx == 0 && dy == 0 {
				hasInitial = true
			}
			centers = append(centers, image.Pt(initial.X+dx, initial.Y+dy))
		}
	}
	if !hasInitial {
		centers = append(centers, initial)
	}
	return centers
}

// annulusROI crops gray to the bounding box of the annulus lower < d <= upper
// around center and zeroes every pixel outside the annulus. It returns the
// masked crop (with origin at 0,0) and the crop's offset in gray. ok is false
// when the annulus does not overlap the image.
func annulusROI(gray *image.Gray, center image.Point, lower, upper int) (*image.Gray, image.Point, bool) {
	b := gray.Bounds()
	reach := upper + roiMargin
	rect := image.Rect(center.X-reach, center.Y-reach, center.X+reach+1, center.Y+reach+1).Intersect(b)
	if rect.Empty() {
		return nil, image.Point{}, false
	}

	roi := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	lo2 := float64(lower * lower)
	hi2 := float64(upper * upper)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		dy := float64(y - center.Y)
		src := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		dst := roi.Pix[(y-rect.Min.Y)*roi.Stride:]
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dx := float64(x - center.X)
			d2 := dx*dx + dy*dy
			if d2 > lo2 && d2 <= hi2 {
				dst[x-rect.Min.X] = src[x-b.Min.X]
			}
		}
	}
	return roi, rect.Min, true
}

// searchParams carries everything one candidate detection needs.
type searchParams struct {
	initial image.Point
	lower   int
	upper   int
	hough   HoughParams
	weights ScoringWeights
}

// detectAtCandidate masks the annulus around candidate, runs the circle
// transform on it and scores every circle found, in transform order. The
// transform is told where the mask lies so its step is not taken for a ring.
func detectAtCandidate(gray *image.Gray, candidate image.Point, p searchParams) []CandidateCircle {
	roi, offset, ok := annulusROI(gray, candidate, p.lower, p.upper)
	if !ok {
		return nil
	}
	hp := p.hough
	hp.mask = &annulus{
		X:     float64(candidate.X - offset.X),
		Y:     float64(candidate.Y - offset.Y),
		Inner: float64(p.lower),
		Outer: float64(p.upper),
	}
	found := findCircles(roi, hp)
	if len(found) == 0 {
		return nil
	}

	scored := make([]CandidateCircle, 0, len(found))
	for _, c := range found {
		c.X += float64(offset.X)
		c.Y += float64(offset.Y)
		scored = append(scored, scoreCircle(gray, c, p.initial, candidate, p.weights))
	}
	return scored
}

// searchCandidates runs detectAtCandidate for every candidate on a bounded
// pool of workers. Each worker only reads gray and writes its own slot, so
// results[i] always belongs to candidates[i] whatever the scheduling.
func searchCandidates(gray *image.Gray, candidates []image.Point, p searchParams, workers int) [][]CandidateCircle {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	results := make([][]CandidateCircle, len(candidates))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c image.Point) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = detectAtCandidate(gray, c, p)
		}(i, c)
	}
	wg.Wait()
	return results
}

// bestCandidate pools all scored circles and returns the one with the highest
// weight. On equal weights the earliest circle in candidate order wins. ok is
// false when no circle was scored at all.
func bestCandidate(results [][]CandidateCircle) (best CandidateCircle, total int, ok bool) {
	best.Weight = math.Inf(-1)
	for _, slot := range results {
		for _, c := range slot {
			total++
			if c.Weight > best.Weight {
				best = c
				ok = true
			}
		}
	}
	return best, total, ok
}
