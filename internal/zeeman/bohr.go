package zeeman

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BohrMagnetonResult holds the regression estimates.
type BohrMagnetonResult struct {
	// Bohr magneton estimates in J/T from the inner and outer ring shifts,
	// and the mean of their magnitudes.
	Inner   float64 `json:"bohr_magneton_inner"`
	Outer   float64 `json:"bohr_magneton_outer"`
	Average float64 `json:"bohr_magneton_avg"`

	// Specific charge e/m in C/kg for each estimate.
	SpecificChargeInner   float64 `json:"specific_charge_inner"`
	SpecificChargeOuter   float64 `json:"specific_charge_outer"`
	SpecificChargeAverage float64 `json:"specific_charge_avg"`

	// Relative errors of the averages against the reference values, in
	// percent.
	BohrMagnetonErrorPct   float64 `json:"bohr_magneton_error_pct"`
	SpecificChargeErrorPct float64 `json:"specific_charge_error_pct"`

	// Count is the number of measurements that entered the fit.
	Count int `json:"count"`
}

// EstimateBohrMagneton fits |ΔE| against B for the inner and outer rings.
//
// Only measurements with both energy shifts set take part. Each series
// (B, |ΔE_inner|, |ΔE_outer|) is normalized to zero mean and unit population
// standard deviation, an ordinary least-squares line is fitted to the
// normalized energy against the normalized field, and the slope is scaled
// back by std(E)/std(B). The result equals the slope of a direct fit.
//
// A single measurement uses a standard deviation of 1, as does any series
// with no spread; a slope is only reported when the field actually varies, so
// fewer than two distinct B values give 0. With no usable measurement the
// result is all zero. It never fails.
func EstimateBohrMagneton(measurements []Measurement) BohrMagnetonResult {
	var b, ei, eo []float64
	for _, m := range measurements {
		if !m.Derived() {
			continue
		}
		b = append(b, m.BField)
		ei = append(ei, math.Abs(*m.DeltaEInner))
		eo = append(eo, math.Abs(*m.DeltaEOuter))
	}
	if len(b) == 0 {
		return BohrMagnetonResult{}
	}

	bNorm, bStd, bVaries := normalize(b)
	res := BohrMagnetonResult{Count: len(b)}
	if bVaries {
		res.Inner = normalizedSlope(bNorm, bStd, ei)
		res.Outer = normalizedSlope(bNorm, bStd, eo)
	}
	res.Average = (math.Abs(res.Inner) + math.Abs(res.Outer)) / 2

	res.SpecificChargeInner = SpecificCharge(res.Inner)
	res.SpecificChargeOuter = SpecificCharge(res.Outer)
	res.SpecificChargeAverage = SpecificCharge(res.Average)

	res.BohrMagnetonErrorPct = math.Abs(res.Average-ReferenceBohrMagneton) / ReferenceBohrMagneton * 100
	res.SpecificChargeErrorPct = math.Abs(res.SpecificChargeAverage-ReferenceSpecificCharge) / ReferenceSpecificCharge * 100
	return res
}

// normalizedSlope fits the normalized energies against the normalized field
// and de-normalizes the slope.
func normalizedSlope(bNorm []float64, bStd float64, e []float64) float64 {
	eNorm, eStd, eVaries := normalize(e)
	if !eVaries {
		return 0
	}
	_, beta := stat.LinearRegression(bNorm, eNorm, nil, false)
	return beta * eStd / bStd
}

// normalize returns (x-mean)/std with the population standard deviation.
// A single sample, or a series with zero spread, keeps std = 1; varies
// reports whether there was any spread to fit against.
func normalize(x []float64) (norm []float64, std float64, varies bool) {
	mean, sd := stat.PopMeanStdDev(x, nil)
	std = 1
	if len(x) > 1 && sd > 0 {
		std = sd
		varies = true
	}
	norm = make([]float64, len(x))
	for i, v := range x {
		norm[i] = (v - mean) / std
	}
	return norm, std, varies
}
