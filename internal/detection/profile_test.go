package detection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
)

// gaussianRingGrid renders a ring whose intensity falls off as a Gaussian of
// the distance from radius r.
func gaussianRingGrid(t *testing.T, size int, cx, cy, r, sigma float64) *imaging.Grid {
	t.Helper()
	pix := make([]uint8, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) - r
			pix[y*size+x] = uint8(math.Round(30 + 200*math.Exp(-d*d/(2*sigma*sigma))))
		}
	}
	g, err := imaging.NewGrid(size, size, 1, pix)
	require.NoError(t, err)
	return g
}

func TestAnalyzeRingBoundaries_MonotonicCrossing(t *testing.T) {
	t.Parallel()

	for _, sigma := range []float64{1.5, 2.5, 4} {
		g := gaussianRingGrid(t, 150, 75, 75, 40, sigma)
		b, err := AnalyzeRingBoundaries(g, 75, 75, 40, DefaultProfileOptions())
		require.NoError(t, err)

		assert.LessOrEqual(t, b.Inner, b.Peak)
		assert.LessOrEqual(t, b.Peak, b.Outer)
		assert.InDelta(t, 40, b.Peak, 1)
		// Half maximum of a Gaussian sits at ±1.18σ.
		assert.InDelta(t, 40-1.18*sigma, b.Inner, 1.5)
		assert.InDelta(t, 40+1.18*sigma, b.Outer, 1.5)
	}
}

func TestRadialProfile_Boundaries(t *testing.T) {
	t.Parallel()

	p := &RadialProfile{
		Radii:     []float64{10, 11, 12, 13, 14, 15, 16, 17, 18},
		Intensity: []float64{0, 1, 5, 9, 10, 8, 4, 1, 0},
	}
	b, err := p.Boundaries()
	require.NoError(t, err)
	assert.Equal(t, RingBoundaries{Inner: 13, Outer: 15, Peak: 14}, *b)
}

func TestRadialProfile_PeakAtWindowEdge(t *testing.T) {
	t.Parallel()

	p := &RadialProfile{
		Radii:     []float64{5, 6, 7, 8},
		Intensity: []float64{9, 8, 2, 1},
	}
	b, err := p.Boundaries()
	require.NoError(t, err)
	assert.Equal(t, 5.0, b.Inner)
	assert.Equal(t, 5.0, b.Peak)
	assert.Equal(t, 6.0, b.Outer)
}

func TestRadialProfile_FlatHasNoPeak(t *testing.T) {
	t.Parallel()

	pix := make([]uint8, 60*60)
	for i := range pix {
		pix[i] = 128
	}
	g, err := imaging.NewGrid(60, 60, 1, pix)
	require.NoError(t, err)

	_, err = AnalyzeRingBoundaries(g, 30, 30, 15, DefaultProfileOptions())
	assert.ErrorIs(t, err, ErrNoPeak)
}

func TestComputeRadialProfile_Window(t *testing.T) {
	t.Parallel()
	g := gaussianRingGrid(t, 100, 50, 50, 20, 2)

	p, err := ComputeRadialProfile(g, 50, 50, 20, ProfileOptions{HalfWidth: 5, AngleSamples: 90})
	require.NoError(t, err)
	assert.Equal(t, []float64{15, 16, 17, 18, 19, 20, 21, 22, 23, 24}, p.Radii)
	assert.Len(t, p.Intensity, len(p.Radii))

	// The upper end is clamped to min(w,h)/2 - 1.
	p, err = ComputeRadialProfile(g, 50, 50, 45, DefaultProfileOptions())
	require.NoError(t, err)
	assert.Equal(t, 35.0, p.Radii[0])
	assert.Equal(t, 48.0, p.Radii[len(p.Radii)-1])
}

func TestComputeRadialProfile_EmptyWindow(t *testing.T) {
	t.Parallel()
	g := gaussianRingGrid(t, 40, 20, 20, 10, 2)

	_, err := ComputeRadialProfile(g, 20, 20, 0, ProfileOptions{HalfWidth: 0, AngleSamples: 360})
	assert.ErrorIs(t, err, ErrEmptyWindow)

	_, err = ComputeRadialProfile(g, 20, 20, 40, DefaultProfileOptions())
	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestComputeRadialProfile_SkipsOutOfBounds(t *testing.T) {
	t.Parallel()

	pix := make([]uint8, 100*100)
	for i := range pix {
		pix[i] = 200
	}
	g, err := imaging.NewGrid(100, 100, 1, pix)
	require.NoError(t, err)

	// Most samples around (5, 50) fall off the left edge; the rest still
	// average to the true intensity rather than being diluted.
	p, err := ComputeRadialProfile(g, 5, 50, 20, DefaultProfileOptions())
	require.NoError(t, err)
	for i, v := range p.Intensity {
		assert.InDelta(t, 200, v, 1e-9, "radius %v", p.Radii[i])
	}
}

func TestComputeRadialProfile_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := ComputeRadialProfile(nil, 0, 0, 10, DefaultProfileOptions())
	assert.ErrorIs(t, err, imaging.ErrInvalidInput)

	rgb, err := imaging.NewGrid(4, 4, 3, make([]uint8, 48))
	require.NoError(t, err)
	_, err = ComputeRadialProfile(rgb, 2, 2, 1, DefaultProfileOptions())
	assert.ErrorIs(t, err, ErrNotGrayscale)

	gray, err := imaging.NewGrid(40, 40, 1, make([]uint8, 1600))
	require.NoError(t, err)
	_, err = ComputeRadialProfile(gray, 20, 20, 10, ProfileOptions{HalfWidth: 5})
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestEnhance_PeakStableUnderRepeatedEnhancement(t *testing.T) {
	t.Parallel()
	g := gaussianRingGrid(t, 128, 64, 64, 35, 2)

	once, err := imaging.Enhance(g)
	require.NoError(t, err)
	twice, err := imaging.Enhance(once)
	require.NoError(t, err)

	a, err := AnalyzeRingBoundaries(once, 64, 64, 35, DefaultProfileOptions())
	require.NoError(t, err)
	b, err := AnalyzeRingBoundaries(twice, 64, 64, 35, DefaultProfileOptions())
	require.NoError(t, err)
	assert.InDelta(t, a.Peak, b.Peak, 1)
	assert.InDelta(t, 35, a.Peak, 1)
}
