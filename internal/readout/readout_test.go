package readout

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zimaging "github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
)

func TestParseReading(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want float64
	}{
		{"1.25", 1.25},
		{"  0.872 A\n", 0.872},
		{"B = 4520 G", 4520},
		{"-12.5", -12.5},
		{"+3", 3},
		{"2,45", 2.45},
		{".75", 0.75},
		{"1.2 1.3", 1.2},
		{"I:003.10", 3.1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, err := ParseReading(tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseReading_NoNumber(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "   ", "ERR", "-.-"} {
		_, err := ParseReading(text)
		assert.ErrorIs(t, err, ErrNoNumber, "text %q", text)
	}
}

func displayImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 30, B: 30, A: 255})
		}
	}
	for y := 15; y < 25; y++ {
		for x := 30; x < 50; x++ {
			img.Set(x, y, color.RGBA{R: 250, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	region := zimaging.Region{X1: 20, Y1: 10, X2: 60, Y2: 30}
	out, err := Prepare(displayImage(), region, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 120, out.Bounds().Dx())
	assert.Equal(t, 60, out.Bounds().Dy())

	c := out.NRGBAAt(60, 30)
	assert.Equal(t, c.R, c.G, "grayscale")
	assert.Equal(t, c.G, c.B, "grayscale")

	inv := DefaultOptions()
	inv.Invert = true
	outInv, err := Prepare(displayImage(), region, inv)
	require.NoError(t, err)
	assert.Equal(t, 255-c.R, outInv.NRGBAAt(60, 30).R)
}

func TestPrepare_BadRegion(t *testing.T) {
	t.Parallel()

	_, err := Prepare(displayImage(), zimaging.Region{X1: 0, Y1: 0, X2: 200, Y2: 10}, DefaultOptions())
	assert.Error(t, err)

	_, err = Prepare(nil, zimaging.Region{X1: 0, Y1: 0, X2: 1, Y2: 1}, DefaultOptions())
	assert.ErrorIs(t, err, zimaging.ErrInvalidInput)
}

func TestReadDisplay_NoBackend(t *testing.T) {
	t.Parallel()
	if BackendInfo().Available {
		t.Skip("OCR backend compiled in")
	}

	_, err := ReadDisplay(displayImage(), zimaging.Region{X1: 0, Y1: 0, X2: 80, Y2: 40}, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnavailable)
}
