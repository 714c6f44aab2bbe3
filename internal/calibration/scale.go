package calibration

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDegenerate is returned when the inputs cannot define a calibration,
	// such as two identical points or readings at a single current.
	ErrDegenerate = errors.New("degenerate calibration input")

	// ErrInsufficientPoints is returned when a fit has fewer than two points.
	ErrInsufficientPoints = errors.New("insufficient calibration points")
)

// Point is an image position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale maps pixel lengths to millimeters on the sensor.
type Scale struct {
	MMPerPixel     float64 `json:"mm_per_pixel"`
	DistancePixels float64 `json:"distance_pixels"`
	DistanceMM     float64 `json:"distance_mm"`

	// AngleDegrees of the reference segment (0 = horizontal right, 90 = down).
	AngleDegrees float64 `json:"angle_degrees"`
}

// ScaleFromPoints derives a scale from two points distanceMM apart.
func ScaleFromPoints(p1, p2 Point, distanceMM float64) (Scale, error) {
	if !(distanceMM > 0) || math.IsInf(distanceMM, 0) {
		return Scale{}, fmt.Errorf("%w: known distance must be positive, got %g", ErrDegenerate, distanceMM)
	}

	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	pixels := math.Hypot(dx, dy)
	if pixels == 0 {
		return Scale{}, fmt.Errorf("%w: points coincide at (%g, %g)", ErrDegenerate, p1.X, p1.Y)
	}

	return Scale{
		MMPerPixel:     distanceMM / pixels,
		DistancePixels: pixels,
		DistanceMM:     distanceMM,
		AngleDegrees:   math.Round(math.Atan2(dy, dx)*180/math.Pi*10) / 10,
	}, nil
}

// ToMM converts a pixel length.
func (s Scale) ToMM(pixels float64) float64 {
	return pixels * s.MMPerPixel
}
