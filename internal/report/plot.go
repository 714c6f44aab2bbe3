package report

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ironsheep/zeeman-rings-mcp/internal/zeeman"
)

// ErrNoData is returned when no measurement has energy shifts to plot.
var ErrNoData = errors.New("no measurements with energy shifts")

var (
	innerColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	outerColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// PlotOptions sets the output size.
type PlotOptions struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultPlotOptions returns an 8x6 inch plot.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 8 * vg.Inch, Height: 6 * vg.Inch}
}

// Fit is a least-squares line |ΔE| = Slope*B + Intercept.
type Fit struct {
	Slope     float64 `json:"slope_j_per_t"`
	Intercept float64 `json:"intercept_j"`
}

// EnergyPlot is a rendered plot with the fits drawn on it.
type EnergyPlot struct {
	PNG      []byte `json:"-"`
	Points   int    `json:"points"`
	InnerFit *Fit   `json:"inner_fit,omitempty"`
	OuterFit *Fit   `json:"outer_fit,omitempty"`
}

// Base64 returns the PNG encoded for transport.
func (p *EnergyPlot) Base64() string {
	return base64.StdEncoding.EncodeToString(p.PNG)
}

// PlotEnergyShifts scatters |ΔE_inner| and |ΔE_outer| against B for every
// measurement with derived shifts. With at least two distinct fields a
// direct least-squares line is drawn through each series.
func PlotEnergyShifts(measurements []zeeman.Measurement, opts PlotOptions) (*EnergyPlot, error) {
	var inner, outer plotter.XYs
	for _, m := range measurements {
		if !m.Derived() {
			continue
		}
		inner = append(inner, plotter.XY{X: m.BField, Y: math.Abs(*m.DeltaEInner)})
		outer = append(outer, plotter.XY{X: m.BField, Y: math.Abs(*m.DeltaEOuter)})
	}
	if len(inner) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = "Energy Shift vs Magnetic Field"
	p.X.Label.Text = "Magnetic Field (T)"
	p.Y.Label.Text = "|Energy Shift| (J)"
	p.Add(plotter.NewGrid())

	result := &EnergyPlot{Points: len(inner)}

	for _, s := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
		fit   **Fit
	}{
		{"Inner", inner, innerColor, &result.InnerFit},
		{"Outer", outer, outerColor, &result.OuterFit},
	} {
		scatter, err := plotter.NewScatter(s.pts)
		if err != nil {
			return nil, fmt.Errorf("%s scatter: %w", s.name, err)
		}
		scatter.GlyphStyle.Color = s.color
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add(s.name+" shifts", scatter)

		fit, ok := fitLine(s.pts)
		if !ok {
			continue
		}
		*s.fit = &fit

		line, err := plotter.NewLine(fitPoints(s.pts, fit))
		if err != nil {
			return nil, fmt.Errorf("%s fit: %w", s.name, err)
		}
		line.Color = s.color
		line.Width = vg.Points(2)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s fit: %.3e J/T", s.name, fit.Slope), line)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.XOffs = 10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return nil, fmt.Errorf("render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode plot: %w", err)
	}
	result.PNG = buf.Bytes()
	return result, nil
}

func fitLine(pts plotter.XYs) (Fit, bool) {
	if len(pts) < 2 {
		return Fit{}, false
	}
	x := make([]float64, len(pts))
	y := make([]float64, len(pts))
	for i, pt := range pts {
		x[i], y[i] = pt.X, pt.Y
	}
	if floats.Max(x) == floats.Min(x) {
		return Fit{}, false
	}
	intercept, slope := stat.LinearRegression(x, y, nil, false)
	return Fit{Slope: slope, Intercept: intercept}, true
}

// fitPoints samples the fit across the field range.
func fitPoints(pts plotter.XYs, fit Fit) plotter.XYs {
	xmin, xmax, _, _ := plotter.XYRange(pts)
	const n = 100
	out := make(plotter.XYs, n)
	for i := range out {
		x := xmin + (xmax-xmin)*float64(i)/(n-1)
		out[i] = plotter.XY{X: x, Y: fit.Slope*x + fit.Intercept}
	}
	return out
}
