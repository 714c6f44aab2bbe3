package calibration

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GaussPerTesla converts gaussmeter readings to SI.
const GaussPerTesla = 1e4

// FieldPoint is one gaussmeter reading at a magnet current.
type FieldPoint struct {
	Current float64 `json:"current_a"`
	Field   float64 `json:"field_g"`
}

// FieldCalibration is the fitted line B(G) = Slope*I + Intercept.
type FieldCalibration struct {
	Slope     float64 `json:"slope_g_per_a"`
	Intercept float64 `json:"intercept_g"`
	RSquared  float64 `json:"r_squared"`
	Points    int     `json:"points"`
}

// FitField fits an ordinary least-squares line through the readings. It needs
// at least two points with distinct currents.
func FitField(points []FieldPoint) (FieldCalibration, error) {
	if len(points) < 2 {
		return FieldCalibration{}, fmt.Errorf("%w: need 2, got %d", ErrInsufficientPoints, len(points))
	}

	currents := make([]float64, len(points))
	fields := make([]float64, len(points))
	for i, p := range points {
		currents[i] = p.Current
		fields[i] = p.Field
	}
	if floats.Max(currents) == floats.Min(currents) {
		return FieldCalibration{}, fmt.Errorf("%w: all readings at %g A", ErrDegenerate, currents[0])
	}

	intercept, slope := stat.LinearRegression(currents, fields, nil, false)
	r2 := 1.0
	if floats.Max(fields) != floats.Min(fields) {
		r2 = stat.RSquared(currents, fields, nil, intercept, slope)
	}
	return FieldCalibration{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		Points:    len(points),
	}, nil
}

// FieldGauss evaluates the line at a current.
func (c FieldCalibration) FieldGauss(current float64) float64 {
	return c.Slope*current + c.Intercept
}

// FieldTesla evaluates the line at a current, in tesla.
func (c FieldCalibration) FieldTesla(current float64) float64 {
	return c.FieldGauss(current) / GaussPerTesla
}

// CurrentFor inverts the line: the current that gives a field in tesla.
func (c FieldCalibration) CurrentFor(fieldTesla float64) (float64, error) {
	if c.Slope == 0 {
		return 0, fmt.Errorf("%w: field does not depend on current", ErrDegenerate)
	}
	return (fieldTesla*GaussPerTesla - c.Intercept) / c.Slope, nil
}
