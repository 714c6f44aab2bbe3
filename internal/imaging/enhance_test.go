package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

// createRingImage draws a bright annulus of the given half-thickness around
// (cx, cy) on a dark background.
func createRingImage(width, height int, cx, cy, radius, halfThickness float64, fg, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			if math.Abs(d-radius) <= halfThickness {
				img.Set(x, y, fg)
			} else {
				img.Set(x, y, bg)
			}
		}
	}
	return img
}

func TestEnhance_NilInput(t *testing.T) {
	_, err := Enhance(nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEnhance_ShapeAndChannels(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"rgb", createInMemoryImage(80, 60, color.RGBA{200, 40, 40, 255})},
		{"gray", image.NewGray(image.Rect(0, 0, 33, 17))},
		{"tiny", createInMemoryImage(3, 2, color.RGBA{10, 20, 30, 255})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := GridFromImage(tt.img)
			if err != nil {
				t.Fatalf("GridFromImage failed: %v", err)
			}
			out, err := Enhance(raw)
			if err != nil {
				t.Fatalf("Enhance failed: %v", err)
			}
			if out.Channels() != 1 {
				t.Errorf("Channels: got %d, want 1", out.Channels())
			}
			if out.Width() != raw.Width() || out.Height() != raw.Height() {
				t.Errorf("dimensions: got %dx%d, want %dx%d", out.Width(), out.Height(), raw.Width(), raw.Height())
			}
		})
	}
}

func TestEnhance_DoesNotMutateSource(t *testing.T) {
	img := createRingImage(64, 64, 32, 32, 20, 2, color.RGBA{255, 255, 255, 255}, color.RGBA{20, 20, 20, 255})
	raw, err := GridFromImage(img)
	if err != nil {
		t.Fatalf("GridFromImage failed: %v", err)
	}
	before := append([]uint8(nil), raw.pix...)

	if _, err := Enhance(raw); err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}
	for i := range before {
		if before[i] != raw.pix[i] {
			t.Fatalf("source grid modified at sample %d", i)
		}
	}
}

func TestEnhance_Deterministic(t *testing.T) {
	img := createRingImage(96, 96, 48, 48, 30, 2, color.RGBA{230, 230, 230, 255}, color.RGBA{30, 30, 30, 255})
	raw, _ := GridFromImage(img)

	a, _ := Enhance(raw)
	b, _ := Enhance(raw)
	for i := range a.pix {
		if a.pix[i] != b.pix[i] {
			t.Fatalf("Enhance not deterministic at sample %d: %d vs %d", i, a.pix[i], b.pix[i])
		}
	}
}

func TestEnhance_RingStaysBrightest(t *testing.T) {
	img := createRingImage(120, 120, 60, 60, 35, 2, color.RGBA{255, 255, 255, 255}, color.RGBA{40, 40, 40, 255})
	raw, _ := GridFromImage(img)

	once, err := Enhance(raw)
	if err != nil {
		t.Fatalf("Enhance failed: %v", err)
	}
	twice, err := Enhance(once)
	if err != nil {
		t.Fatalf("second Enhance failed: %v", err)
	}

	for _, g := range []*Grid{once, twice} {
		onRing := g.Intensity(60+35, 60)
		background := g.Intensity(60+15, 60)
		if onRing <= background {
			t.Errorf("ring pixel (%d) should be brighter than background (%d)", onRing, background)
		}
	}
}

func TestLuminance(t *testing.T) {
	img := createInMemoryImage(4, 4, color.RGBA{255, 0, 0, 255})
	raw, _ := GridFromImage(img)
	gray := raw.Gray()
	// 0.299 * 255 = 76.2
	if got := gray.GrayAt(1, 1).Y; got != 76 {
		t.Errorf("luminance of pure red: got %d, want 76", got)
	}

	tests := []struct {
		c    color.RGBA
		want uint8
	}{
		{color.RGBA{0, 255, 0, 255}, 150},
		{color.RGBA{0, 0, 255, 255}, 29},
		{color.RGBA{10, 200, 50, 255}, 126},
		{color.RGBA{255, 255, 255, 255}, 255},
	}
	for _, tt := range tests {
		g, _ := GridFromImage(createInMemoryImage(3, 2, tt.c))
		gray := g.Gray()
		if b := gray.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
			t.Fatalf("gray size: got %v", b)
		}
		if got := gray.GrayAt(2, 1).Y; got != tt.want {
			t.Errorf("luminance of %v: got %d, want %d", tt.c, got, tt.want)
		}
	}
}

func TestClaheGo_UniformImage(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range src.Pix {
		src.Pix[i] = 100
	}
	out := claheGo(src, 2.0, 8)
	first := out.Pix[0]
	for i, v := range out.Pix {
		if v != first {
			t.Fatalf("uniform input should map to a uniform output, sample %d = %d, want %d", i, v, first)
		}
	}
}

func TestClaheGo_StretchesLowContrast(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(100 + (x+y)%8)})
		}
	}
	out := claheGo(src, 2.0, 8)

	lo, hi := uint8(255), uint8(0)
	for _, v := range out.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if int(hi)-int(lo) <= 7 {
		t.Errorf("expected contrast to be stretched beyond the input span of 7, got %d", int(hi)-int(lo))
	}
}

func TestNewGrid_Validation(t *testing.T) {
	tests := []struct {
		name     string
		w, h, ch int
		n        int
		wantErr  bool
	}{
		{"gray", 4, 3, 1, 12, false},
		{"rgb", 4, 3, 3, 36, false},
		{"bad channels", 4, 3, 2, 24, true},
		{"short buffer", 4, 3, 1, 11, true},
		{"zero size", 0, 3, 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.w, tt.h, tt.ch, make([]uint8, tt.n))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGrid error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewGrid_CopiesInput(t *testing.T) {
	pix := []uint8{1, 2, 3, 4}
	g, err := NewGrid(2, 2, 1, pix)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	pix[0] = 99
	if g.Intensity(0, 0) != 1 {
		t.Errorf("grid shares caller buffer: got %d, want 1", g.Intensity(0, 0))
	}
}
