package detection

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
)

var (
	// ErrInvalidParameters is returned for out of order radius limits or a
	// negative search window.
	ErrInvalidParameters = errors.New("invalid detection parameters")

	// ErrNotGrayscale is returned when a single-channel grid is required.
	ErrNotGrayscale = errors.New("grid must be single-channel")

	// ErrNoCircleFound is returned when no candidate center produced a circle.
	ErrNoCircleFound = errors.New("no circle found")
)

// DetectOptions tunes ring detection. The zero value is not useful; start
// from DefaultDetectOptions.
type DetectOptions struct {
	Scoring ScoringWeights `json:"scoring"`
	Profile ProfileOptions `json:"profile"`

	// CannyHigh is the upper Canny threshold used by the circle transform.
	CannyHigh float64 `json:"canny_high"`

	// AccumulatorThreshold is the minimum vote count for a circle center.
	AccumulatorThreshold int `json:"accumulator_threshold"`

	// MinDistFactor sets the minimum distance between circle centers found at
	// one candidate, as a fraction of the lower radius limit (at least 1 px).
	MinDistFactor float64 `json:"min_dist_factor"`

	// MaxCirclesPerCandidate caps how many circles one candidate contributes.
	MaxCirclesPerCandidate int `json:"max_circles_per_candidate"`

	// Workers bounds candidate parallelism; 0 means GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultDetectOptions returns the tuning used for ring photographs.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		Scoring:                DefaultScoringWeights(),
		Profile:                DefaultProfileOptions(),
		CannyHigh:              100,
		AccumulatorThreshold:   10,
		MinDistFactor:          0.5,
		MaxCirclesPerCandidate: 16,
	}
}

// RingRequest describes one detection call in pixel units.
type RingRequest struct {
	InitialX       int `json:"initial_x"`
	InitialY       int `json:"initial_y"`
	RadiusLower    int `json:"radius_lower"`
	RadiusUpper    int `json:"radius_upper"`
	SearchHalfSize int `json:"search_half_size"`
}

// Validate checks 0 <= RadiusLower < RadiusUpper and SearchHalfSize >= 0.
func (r RingRequest) Validate() error {
	if r.RadiusLower < 0 || r.RadiusLower >= r.RadiusUpper {
		return fmt.Errorf("%w: need 0 <= radius_lower < radius_upper, got %d and %d",
			ErrInvalidParameters, r.RadiusLower, r.RadiusUpper)
	}
	if r.SearchHalfSize < 0 {
		return fmt.Errorf("%w: search_half_size must be non-negative, got %d",
			ErrInvalidParameters, r.SearchHalfSize)
	}
	return nil
}

// DetectionResult is the best ring found by DetectRing.
//
// Center and centerline radius come from the highest-weight circle and are
// whole pixels. Inner and outer radii come from the radial profile around that
// circle and are nil when the profile had no usable peak.
type DetectionResult struct {
	CenterX          float64  `json:"center_x"`
	CenterY          float64  `json:"center_y"`
	RadiusCenterline float64  `json:"radius_centerline"`
	RadiusInner      *float64 `json:"radius_inner"`
	RadiusOuter      *float64 `json:"radius_outer"`
	Weight           float64  `json:"weight"`

	// Best is the winning circle with its component weights.
	Best CandidateCircle `json:"best"`

	// CandidatesTried and CirclesScored summarize the search.
	CandidatesTried int `json:"candidates_tried"`
	CirclesScored   int `json:"circles_scored"`
}

// DetectRing locates the ring nearest a user-supplied center in an enhanced
// single-channel grid, using DefaultDetectOptions.
func DetectRing(g *imaging.Grid, req RingRequest) (*DetectionResult, error) {
	return DetectRingWithOptions(g, req, DefaultDetectOptions())
}

// DetectRingWithOptions locates the ring nearest a user-supplied center.
//
// # Algorithm
//
//  1. Validation: parameters are checked before any image work, then the grid
//     must be single-channel
//  2. Candidates: centers on a stride-2 grid within ±SearchHalfSize of the
//     initial center, plus the initial center itself
//  3. Per candidate (in parallel): the grid is masked to the annulus
//     RadiusLower < d <= RadiusUpper around the candidate and the circle
//     transform runs over it, limited to that radius range
//  4. Scoring: every circle found gets the composite weight described on
//     ScoringWeights
//  5. Selection: the highest weight over all candidates wins; on a tie the
//     circle from the earlier candidate (then earlier in transform order)
//     wins. Ties under floating point are rare but possible, and which of
//     several equally weighted circles is returned is not part of the
//     contract.
//  6. Boundaries: the radial profile around the winner gives inner and outer
//     radii; failure there leaves them nil rather than failing the call
//
// Returns ErrInvalidParameters, ErrNotGrayscale or ErrNoCircleFound.
func DetectRingWithOptions(g *imaging.Grid, req RingRequest, opts DetectOptions) (*DetectionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, imaging.ErrInvalidInput
	}
	if g.Channels() != 1 {
		return nil, fmt.Errorf("%w: got %d channels", ErrNotGrayscale, g.Channels())
	}

	gray := g.Gray()
	initial := image.Pt(req.InitialX, req.InitialY)
	candidates := candidateCenters(initial, req.SearchHalfSize)

	params := searchParams{
		initial: initial,
		lower:   req.RadiusLower,
		upper:   req.RadiusUpper,
		weights: opts.Scoring,
		hough: HoughParams{
			MinRadius:            req.RadiusLower,
			MaxRadius:            req.RadiusUpper,
			MinDist:              math.Max(1, math.Floor(float64(req.RadiusLower)*opts.MinDistFactor)),
			CannyHigh:            opts.CannyHigh,
			AccumulatorThreshold: opts.AccumulatorThreshold,
			MaxCircles:           opts.MaxCirclesPerCandidate,
		},
	}

	results := searchCandidates(gray, candidates, params, opts.Workers)
	best, total, ok := bestCandidate(results)
	if !ok {
		return nil, fmt.Errorf("%w: %d candidate centers tried", ErrNoCircleFound, len(candidates))
	}

	result := &DetectionResult{
		CenterX:          best.CenterX,
		CenterY:          best.CenterY,
		RadiusCenterline: best.Radius,
		Weight:           best.Weight,
		Best:             best,
		CandidatesTried:  len(candidates),
		CirclesScored:    total,
	}

	bounds, err := AnalyzeRingBoundaries(g, best.CenterX, best.CenterY, best.Radius, opts.Profile)
	if err == nil {
		inner, outer := bounds.Inner, bounds.Outer
		result.RadiusInner = &inner
		result.RadiusOuter = &outer
	}
	return result, nil
}
