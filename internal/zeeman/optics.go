package zeeman

import (
	"errors"
	"fmt"
	"math"
)

// Physical constants (SI, exact 2019 definitions where applicable).
const (
	Planck        = 6.62607015e-34  // J·s
	SpeedOfLight  = 2.99792458e8    // m/s
	ElectronVolt  = 1.602176634e-19 // J
	ReducedPlanck = Planck / (2 * math.Pi)
)

// Accepted values the estimates are compared against.
const (
	ReferenceBohrMagneton   = 9.274e-24 // J/T
	ReferenceSpecificCharge = 1.758e11  // C/kg
)

// ErrDomain is returned when a ring angle exceeds the total internal
// reflection limit of the etalon, so no refraction angle exists.
var ErrDomain = errors.New("refraction angle undefined")

// Optics describes the imaging lens and the etalon.
type Optics struct {
	// FocalLength of the camera lens in meters.
	FocalLength float64 `json:"focal_length_m"`

	// RefractiveIndex of the etalon spacer.
	RefractiveIndex float64 `json:"refractive_index"`
}

// DefaultOptics returns a 150 mm lens and a fused silica etalon (n = 1.46).
func DefaultOptics() Optics {
	return Optics{FocalLength: 0.150, RefractiveIndex: 1.46}
}

// IncidenceAngle converts a ring radius on the sensor, in millimeters, to the
// angle of incidence in radians: atan(r / f).
func (o Optics) IncidenceAngle(radiusMM float64) float64 {
	return math.Atan(radiusMM / 1000 / o.FocalLength)
}

// RefractionAngle applies Snell's law, asin(sin(alpha) / n). Returns ErrDomain
// when sin(alpha)/n lies outside [-1, 1].
func (o Optics) RefractionAngle(alpha float64) (float64, error) {
	s := math.Sin(alpha) / o.RefractiveIndex
	if s > 1 || s < -1 || math.IsNaN(s) {
		return 0, fmt.Errorf("%w: sin(alpha)/n = %g", ErrDomain, s)
	}
	return math.Asin(s), nil
}

// WavelengthShift returns the shift of a split component whose refraction
// angle is beta, relative to the unsplit line at betaCenter:
// λ·(cos(βc)/cos(β) − 1). Units follow wavelength.
func WavelengthShift(beta, betaCenter, wavelength float64) float64 {
	return wavelength * (math.Cos(betaCenter)/math.Cos(beta) - 1)
}

// EnergyShift converts a wavelength shift to an energy shift in joules:
// h·c·Δλ / λ². Both lengths are in meters.
func EnergyShift(deltaLambda, wavelength float64) float64 {
	return Planck * SpeedOfLight * deltaLambda / (wavelength * wavelength)
}

// SpecificCharge returns e/m = 2·|μB| / ħ for a Bohr magneton estimate.
func SpecificCharge(bohrMagneton float64) float64 {
	return 2 * math.Abs(bohrMagneton) / ReducedPlanck
}
