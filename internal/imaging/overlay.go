package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// RingMarker is one circle drawn by RingOverlay.
type RingMarker struct {
	Label  string  `json:"label"`  // e.g. "inner", "centerline", "outer"
	Radius float64 `json:"radius"` // radius in pixels
}

// OverlayResult contains the source image with rings drawn over it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	RingsDrawn  int    `json:"rings_drawn"`
}

// RingOverlay draws a center cross and one circle per marker on a copy of img.
//
// Ring colors are spaced evenly in HCL hue so adjacent rings stay
// distinguishable on both bright and dark frames. When showLabels is set the
// radius of each ring is printed just right of the circle.
func RingOverlay(img image.Image, centerX, centerY float64, rings []RingMarker, showLabels bool) (*OverlayResult, error) {
	if img == nil {
		return nil, ErrInvalidInput
	}
	canvas := imaging.Clone(img)
	bounds := canvas.Bounds()

	drawn := 0
	for i, ring := range rings {
		if ring.Radius <= 0 {
			continue
		}
		c := ringColor(i, len(rings))
		drawCircle(canvas, centerX, centerY, ring.Radius, c)
		drawn++
		if showLabels {
			label := fmt.Sprintf("%.1f", ring.Radius)
			lx := int(math.Round(centerX+ring.Radius)) + 3
			ly := int(math.Round(centerY)) - 3
			drawLabel(canvas, lx, ly, label, color.RGBA{255, 255, 255, 255}, color.RGBA{c.R / 3, c.G / 3, c.B / 3, 200})
		}
	}
	drawCross(canvas, int(math.Round(centerX)), int(math.Round(centerY)), 4, color.RGBA{255, 255, 255, 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode overlay image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		RingsDrawn:  drawn,
	}, nil
}

// ringColor picks the i-th of n hues around the HCL wheel.
func ringColor(i, n int) color.RGBA {
	if n < 1 {
		n = 1
	}
	hue := math.Mod(30+float64(i)*360/float64(n), 360)
	r, g, b := colorful.Hcl(hue, 0.9, 0.7).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawCircle plots a 2-pixel-wide circle outline, clipped to the canvas.
func drawCircle(img *image.NRGBA, cx, cy, r float64, c color.RGBA) {
	bounds := img.Bounds()
	steps := int(math.Ceil(2 * math.Pi * (r + 1) * 2))
	for _, rr := range []float64{r - 0.5, r + 0.5} {
		for i := 0; i < steps; i++ {
			theta := 2 * math.Pi * float64(i) / float64(steps)
			x := int(math.Round(cx + rr*math.Cos(theta)))
			y := int(math.Round(cy + rr*math.Sin(theta)))
			if image.Pt(x, y).In(bounds) {
				img.Set(x, y, c)
			}
		}
	}
}

// drawCross marks the ring center.
func drawCross(img *image.NRGBA, cx, cy, arm int, c color.RGBA) {
	bounds := img.Bounds()
	for d := -arm; d <= arm; d++ {
		if p := image.Pt(cx+d, cy); p.In(bounds) {
			img.Set(p.X, p.Y, c)
		}
		if p := image.Pt(cx, cy+d); p.In(bounds) {
			img.Set(p.X, p.Y, c)
		}
	}
}

// drawLabel draws a simple text label at the given position using a 3x5 pixel
// font covering digits, '.', ',' and '-'.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'.': {"000", "000", "000", "000", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(bounds) {
				img.Set(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					if p := image.Pt(cx+col, y+row); p.In(bounds) {
						img.Set(p.X, p.Y, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
