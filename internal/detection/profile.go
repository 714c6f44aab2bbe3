package detection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
)

var (
	// ErrNoPeak is returned when a radial profile is flat, so no ring can be
	// told apart from the background.
	ErrNoPeak = errors.New("radial profile has no peak")

	// ErrEmptyWindow is returned when the radial scan window collapses to no
	// radii after clamping to the image.
	ErrEmptyWindow = errors.New("radial scan window is empty")

	// ErrInvertedBoundaries is returned when the inner crossing lies beyond
	// the outer one.
	ErrInvertedBoundaries = errors.New("inner boundary exceeds outer boundary")
)

// ProfileOptions controls radial profile sampling.
type ProfileOptions struct {
	// HalfWidth is how far, in pixels, the scan extends on each side of the
	// radius estimate.
	HalfWidth float64 `json:"half_width"`

	// AngleSamples is the number of equally spaced angles sampled per radius.
	AngleSamples int `json:"angle_samples"`
}

// DefaultProfileOptions returns a 20 pixel wide window sampled at 360 angles.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{HalfWidth: 10, AngleSamples: 360}
}

// RadialProfile is the angularly averaged intensity around a center.
type RadialProfile struct {
	// Radii holds the sampled integer radii in increasing order.
	Radii []float64 `json:"radii"`

	// Intensity[i] is the mean intensity at Radii[i], averaged over the
	// in-bounds samples only.
	Intensity []float64 `json:"intensity"`
}

// RingBoundaries are the half-maximum crossings around a profile peak.
type RingBoundaries struct {
	Inner float64 `json:"inner_radius"`
	Outer float64 `json:"outer_radius"`
	Peak  float64 `json:"peak_radius"`
}

// ComputeRadialProfile samples the intensity of g on circles around
// (centerX, centerY).
//
// The scan covers the integer radii from floor(max(0, radius-HalfWidth)) up to
// but excluding ceil(min(min(w,h)/2-1, radius+HalfWidth)). Each sample uses the
// nearest pixel; samples that fall outside the image are skipped and the
// average is taken over the samples that remain, so a ring near an image edge
// keeps its true amplitude.
//
// Returns ErrEmptyWindow when no radius survives clamping.
func ComputeRadialProfile(g *imaging.Grid, centerX, centerY, radius float64, opts ProfileOptions) (*RadialProfile, error) {
	if g == nil {
		return nil, imaging.ErrInvalidInput
	}
	if g.Channels() != 1 {
		return nil, ErrNotGrayscale
	}
	if opts.AngleSamples <= 0 {
		return nil, fmt.Errorf("%w: angle samples must be positive, got %d", ErrInvalidParameters, opts.AngleSamples)
	}

	start := math.Max(0, radius-opts.HalfWidth)
	limit := float64(min(g.Width(), g.Height()))/2 - 1
	end := math.Min(limit, radius+opts.HalfWidth)
	if start >= end {
		return nil, ErrEmptyWindow
	}
	first := int(math.Floor(start))
	last := int(math.Ceil(end))
	if last <= first {
		return nil, ErrEmptyWindow
	}

	n := last - first
	profile := &RadialProfile{
		Radii:     make([]float64, n),
		Intensity: make([]float64, n),
	}
	counts := make([]int, n)
	for i := range profile.Radii {
		profile.Radii[i] = float64(first + i)
	}

	for a := 0; a < opts.AngleSamples; a++ {
		theta := 2 * math.Pi * float64(a) / float64(opts.AngleSamples)
		cos, sin := math.Cos(theta), math.Sin(theta)
		for i, r := range profile.Radii {
			x := int(math.Round(centerX + r*cos))
			y := int(math.Round(centerY + r*sin))
			if !g.InBounds(x, y) {
				continue
			}
			profile.Intensity[i] += float64(g.Intensity(x, y))
			counts[i]++
		}
	}
	for i, c := range counts {
		if c > 0 {
			profile.Intensity[i] /= float64(c)
		}
	}
	return profile, nil
}

// Boundaries locates the ring in the profile by half-maximum crossings.
//
// The peak is the first radius of maximum intensity. The threshold is
// min + 0.5*(max-min); the inner boundary is found by walking toward smaller
// radii while the neighbor stays above the threshold, the outer boundary
// likewise toward larger radii. The result always satisfies
// Inner <= Peak <= Outer.
//
// Returns ErrNoPeak for a flat profile.
func (p *RadialProfile) Boundaries() (*RingBoundaries, error) {
	if p == nil || len(p.Intensity) == 0 {
		return nil, ErrEmptyWindow
	}

	peak := floats.MaxIdx(p.Intensity)
	maxVal := p.Intensity[peak]
	minVal := floats.Min(p.Intensity)
	if maxVal <= minVal {
		return nil, ErrNoPeak
	}
	threshold := minVal + 0.5*(maxVal-minVal)

	inner := peak
	for inner > 0 && p.Intensity[inner-1] > threshold {
		inner--
	}
	outer := peak
	for outer < len(p.Intensity)-1 && p.Intensity[outer+1] > threshold {
		outer++
	}

	b := &RingBoundaries{
		Inner: p.Radii[inner],
		Outer: p.Radii[outer],
		Peak:  p.Radii[peak],
	}
	if b.Inner > b.Outer {
		return nil, ErrInvertedBoundaries
	}
	return b, nil
}

// AnalyzeRingBoundaries computes the radial profile around a center and
// returns its half-maximum crossings. See ComputeRadialProfile and
// RadialProfile.Boundaries.
func AnalyzeRingBoundaries(g *imaging.Grid, centerX, centerY, radius float64, opts ProfileOptions) (*RingBoundaries, error) {
	profile, err := ComputeRadialProfile(g, centerX, centerY, radius, opts)
	if err != nil {
		return nil, err
	}
	return profile.Boundaries()
}
