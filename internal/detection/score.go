package detection

import (
	"image"
	"math"
)

// ScoringWeights are the coefficients of the composite circle score.
//
// Each component weight lies in [0,1]; the final score is
//
//	Distance*distance + Edge*edge + Completeness*completeness + Centering*centering
//
// With the default coefficients summing to 1 the final score is in [0,1] too.
type ScoringWeights struct {
	Distance     float64 `json:"distance"`
	Edge         float64 `json:"edge"`
	Completeness float64 `json:"completeness"`
	Centering    float64 `json:"centering"`

	// DistanceFalloff scales the drift penalty:
	// distance = 1 / (1 + DistanceFalloff*drift).
	DistanceFalloff float64 `json:"distance_falloff"`
}

// DefaultScoringWeights returns 0.2 distance, 0.5 edge, 0.2 completeness,
// 0.1 centering, with a 0.1 distance falloff.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Distance:        0.2,
		Edge:            0.5,
		Completeness:    0.2,
		Centering:       0.1,
		DistanceFalloff: 0.1,
	}
}

// Combine returns the weighted sum of the four component weights.
func (w ScoringWeights) Combine(distance, edge, completeness, centering float64) float64 {
	return w.Distance*distance + w.Edge*edge + w.Completeness*completeness + w.Centering*centering
}

// CandidateCircle is one scored circle hypothesis.
type CandidateCircle struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Radius  float64 `json:"radius"`
	Weight  float64 `json:"weight"`

	// Component weights, for diagnostics.
	DistanceWeight     float64 `json:"distance_weight"`
	EdgeWeight         float64 `json:"edge_weight"`
	CompletenessWeight float64 `json:"completeness_weight"`
	CenteringWeight    float64 `json:"centering_weight"`
}

// scoreCircle rates a detected circle against the enhanced image.
//
// The edge band and the returned record use the circle snapped to integer
// center and radius; drift and centering use the detected center. The edge
// weight is the mean of the nonzero pixels on a 2-pixel band around the circle,
// divided by 255. The completeness weight is the number of those nonzero
// pixels over the expected perimeter 2πr, capped at 1. drift is measured from
// the user's initial center; centering from the candidate center that masked
// the transform.
func scoreCircle(gray *image.Gray, c circle, initial, candidate image.Point, w ScoringWeights) CandidateCircle {
	cx := math.Round(c.X)
	cy := math.Round(c.Y)
	r := math.Round(c.Radius)

	drift := math.Hypot(c.X-float64(initial.X), c.Y-float64(initial.Y))
	distance := 1 / (1 + w.DistanceFalloff*drift)

	sum, count := bandIntensity(gray, cx, cy, r)
	var edge float64
	if count > 0 {
		edge = sum / float64(count) / 255
	}
	completeness := math.Min(1, float64(count)/math.Max(1, 2*math.Pi*r))

	offset := math.Hypot(c.X-float64(candidate.X), c.Y-float64(candidate.Y))
	centering := 1 / (1 + offset)

	return CandidateCircle{
		CenterX:            cx,
		CenterY:            cy,
		Radius:             r,
		Weight:             w.Combine(distance, edge, completeness, centering),
		DistanceWeight:     distance,
		EdgeWeight:         edge,
		CompletenessWeight: completeness,
		CenteringWeight:    centering,
	}
}

// bandIntensity sums the nonzero pixels whose distance from (cx, cy) is
// within one pixel of r, and counts them.
func bandIntensity(gray *image.Gray, cx, cy, r float64) (float64, int) {
	b := gray.Bounds()
	x0 := clamp(int(math.Floor(cx-r-1)), b.Min.X, b.Max.X-1)
	x1 := clamp(int(math.Ceil(cx+r+1)), b.Min.X, b.Max.X-1)
	y0 := clamp(int(math.Floor(cy-r-1)), b.Min.Y, b.Max.Y-1)
	y1 := clamp(int(math.Ceil(cy+r+1)), b.Min.Y, b.Max.Y-1)

	var sum float64
	count := 0
	for y := y0; y <= y1; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		for x := x0; x <= x1; x++ {
			if math.Abs(math.Hypot(float64(x)-cx, float64(y)-cy)-r) >= 1 {
				continue
			}
			if v := row[x-b.Min.X]; v > 0 {
				sum += float64(v)
				count++
			}
		}
	}
	return sum, count
}
