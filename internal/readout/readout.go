package readout

import (
	"errors"
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	zimaging "github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
)

var (
	// ErrUnavailable is returned when no OCR backend is compiled in.
	ErrUnavailable = errors.New("OCR backend not available")

	// ErrNoNumber is returned when the recognized text holds no number.
	ErrNoNumber = errors.New("no number in display text")
)

var numberPattern = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?|[-+]?[.,]\d+`)

// Options control display preprocessing.
type Options struct {
	// Scale is the upscale factor applied to the cropped display. Segment
	// displays OCR poorly below roughly 40 px character height.
	Scale float64 `json:"scale"`

	// Contrast in percent, -100..100, applied after grayscale conversion.
	Contrast float64 `json:"contrast"`

	// Invert turns light-on-dark displays into dark-on-light text.
	Invert bool `json:"invert"`

	Language string `json:"language"`
}

// DefaultOptions returns 3x upscale, +40% contrast, English.
func DefaultOptions() Options {
	return Options{Scale: 3, Contrast: 40, Language: "eng"}
}

// Reading is a parsed display value.
type Reading struct {
	Value      float64         `json:"value"`
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Region     zimaging.Region `json:"region"`
}

// ParseReading returns the first decimal number in text. A comma decimal
// separator is accepted.
func ParseReading(text string) (float64, error) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, fmt.Errorf("%w: %q", ErrNoNumber, strings.TrimSpace(text))
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrNoNumber, m, err)
	}
	return v, nil
}

// Prepare crops the display region and conditions it for OCR.
func Prepare(img image.Image, region zimaging.Region, opts Options) (*image.NRGBA, error) {
	cropped, err := zimaging.CropRegion(img, region, opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("crop display: %w", err)
	}
	out := imaging.Grayscale(cropped)
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, opts.Contrast)
	}
	if opts.Invert {
		out = imaging.Invert(out)
	}
	return out, nil
}

// ReadDisplay recognizes the number shown in a display region.
func ReadDisplay(img image.Image, region zimaging.Region, opts Options) (*Reading, error) {
	prepared, err := Prepare(img, region, opts)
	if err != nil {
		return nil, err
	}
	text, confidence, err := recognize(prepared, opts.Language)
	if err != nil {
		return nil, err
	}
	v, err := ParseReading(text)
	if err != nil {
		return nil, err
	}
	return &Reading{
		Value:      v,
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		Region:     region,
	}, nil
}

// Info describes the compiled-in OCR backend.
type Info struct {
	Available bool   `json:"available"`
	Backend   string `json:"backend"`
	Version   string `json:"version,omitempty"`
}
