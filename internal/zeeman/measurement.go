package zeeman

import "math"

// RawMeasurementInput is one observation as committed by the user.
//
// Radii are ring radii on the sensor in millimeters. Any of them may be nil
// when that ring was not measured.
type RawMeasurementInput struct {
	// BField is the magnetic field at the lamp in tesla.
	BField float64 `json:"b_field_t"`

	// Wavelength of the unsplit line in meters.
	Wavelength float64 `json:"wavelength_m"`

	// Current is the magnet current in amperes, when known. It is carried
	// through for reporting only.
	Current *float64 `json:"current_a,omitempty"`

	RCenter *float64 `json:"r_center_mm"`
	RInner  *float64 `json:"r_inner_mm"`
	ROuter  *float64 `json:"r_outer_mm"`
}

// Measurement is a processed observation. The derived fields are either all
// set or all nil: they are set exactly when all three radii are present and
// every angle is physically valid.
type Measurement struct {
	RawMeasurementInput

	AlphaCenter *float64 `json:"alpha_c"`
	AlphaInner  *float64 `json:"alpha_i"`
	AlphaOuter  *float64 `json:"alpha_o"`

	BetaCenter *float64 `json:"beta_c"`
	BetaInner  *float64 `json:"beta_i"`
	BetaOuter  *float64 `json:"beta_o"`

	DeltaLambdaInner *float64 `json:"delta_lambda_i"`
	DeltaLambdaOuter *float64 `json:"delta_lambda_o"`

	DeltaEInner   *float64 `json:"delta_e_i"`
	DeltaEOuter   *float64 `json:"delta_e_o"`
	DeltaEAverage *float64 `json:"delta_e_avg"`
}

// Derived reports whether the derived fields are set.
func (m Measurement) Derived() bool {
	return m.DeltaEInner != nil && m.DeltaEOuter != nil
}

// ProcessMeasurement derives angles and shifts with DefaultOptics.
func ProcessMeasurement(raw RawMeasurementInput) Measurement {
	return DefaultOptics().ProcessMeasurement(raw)
}

// ProcessMeasurement derives the incidence and refraction angles, the
// wavelength shifts of the inner and outer rings relative to the centerline,
// and the matching energy shifts.
//
// It never fails. When any radius is nil, or any ring is beyond the total
// internal reflection limit, the measurement is returned with every derived
// field nil. The input is copied, never modified.
func (o Optics) ProcessMeasurement(raw RawMeasurementInput) Measurement {
	m := Measurement{RawMeasurementInput: raw}
	if raw.RCenter == nil || raw.RInner == nil || raw.ROuter == nil {
		return m
	}

	alphaC := o.IncidenceAngle(*raw.RCenter)
	alphaI := o.IncidenceAngle(*raw.RInner)
	alphaO := o.IncidenceAngle(*raw.ROuter)

	betaC, err := o.RefractionAngle(alphaC)
	if err != nil {
		return m
	}
	betaI, err := o.RefractionAngle(alphaI)
	if err != nil {
		return m
	}
	betaO, err := o.RefractionAngle(alphaO)
	if err != nil {
		return m
	}

	dLambdaI := WavelengthShift(betaI, betaC, raw.Wavelength)
	dLambdaO := WavelengthShift(betaO, betaC, raw.Wavelength)
	dEI := EnergyShift(dLambdaI, raw.Wavelength)
	dEO := EnergyShift(dLambdaO, raw.Wavelength)
	avg := (math.Abs(dEI) + math.Abs(dEO)) / 2

	m.AlphaCenter, m.AlphaInner, m.AlphaOuter = &alphaC, &alphaI, &alphaO
	m.BetaCenter, m.BetaInner, m.BetaOuter = &betaC, &betaI, &betaO
	m.DeltaLambdaInner, m.DeltaLambdaOuter = &dLambdaI, &dLambdaO
	m.DeltaEInner, m.DeltaEOuter, m.DeltaEAverage = &dEI, &dEO, &avg
	return m
}

// Float returns a pointer to v, for filling optional fields.
func Float(v float64) *float64 {
	return &v
}
