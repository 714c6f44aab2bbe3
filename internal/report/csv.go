package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/ironsheep/zeeman-rings-mcp/internal/calibration"
	"github.com/ironsheep/zeeman-rings-mcp/internal/zeeman"
)

// Header is the column row of the measurement table.
var Header = []string{
	"I(A)", "B(G)",
	"R_i(mm)", "R_c(mm)", "R_o(mm)",
	"α_i(deg)", "α_c(deg)", "α_o(deg)",
	"β_i(deg)", "β_c(deg)", "β_o(deg)",
	"Δλ_i(nm)", "Δλ_o(nm)",
	"ΔE_i(eV)", "ΔE_o(eV)",
}

// WriteCSV writes one tab-separated row per measurement under Header.
// Undefined values are empty cells. The current column comes from the
// measurement, or from inverting field when the measurement has none.
func WriteCSV(w io.Writer, measurements []zeeman.Measurement, field *calibration.FieldCalibration) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, m := range measurements {
		if err := cw.Write(row(m, field)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(m zeeman.Measurement, field *calibration.FieldCalibration) []string {
	current := m.Current
	if current == nil && field != nil {
		if i, err := field.CurrentFor(m.BField); err == nil {
			current = &i
		}
	}

	gauss := m.BField * calibration.GaussPerTesla
	return []string{
		format(current, 2),
		format(&gauss, 2),
		format(m.RInner, 3),
		format(m.RCenter, 3),
		format(m.ROuter, 3),
		format(degrees(m.AlphaInner), 4),
		format(degrees(m.AlphaCenter), 4),
		format(degrees(m.AlphaOuter), 4),
		format(degrees(m.BetaInner), 4),
		format(degrees(m.BetaCenter), 4),
		format(degrees(m.BetaOuter), 4),
		format(scale(m.DeltaLambdaInner, 1e9), 3),
		format(scale(m.DeltaLambdaOuter, 1e9), 3),
		format(scale(m.DeltaEInner, 1/zeeman.ElectronVolt), 6),
		format(scale(m.DeltaEOuter, 1/zeeman.ElectronVolt), 6),
	}
}

func format(v *float64, prec int) string {
	if v == nil || math.IsNaN(*v) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func degrees(rad *float64) *float64 {
	return scale(rad, 180/math.Pi)
}

func scale(v *float64, k float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * k
	return &s
}
