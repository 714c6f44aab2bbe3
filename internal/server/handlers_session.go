package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/zeeman-rings-mcp/internal/calibration"
	"github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
	"github.com/ironsheep/zeeman-rings-mcp/internal/readout"
	"github.com/ironsheep/zeeman-rings-mcp/internal/report"
	"github.com/ironsheep/zeeman-rings-mcp/internal/session"
	"github.com/ironsheep/zeeman-rings-mcp/internal/zeeman"
)

// === Calibration Handlers ===

type calibrateScaleArgs struct {
	Path       string  `json:"path"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	DistanceMM float64 `json:"distance_mm"`
}

func (s *Server) handleCalibrateScale(args json.RawMessage) (interface{}, error) {
	var a calibrateScaleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sc, err := calibration.ScaleFromPoints(
		calibration.Point{X: a.X1, Y: a.Y1},
		calibration.Point{X: a.X2, Y: a.Y2},
		a.DistanceMM,
	)
	if err != nil {
		return nil, err
	}
	s.session.SetScale(a.Path, sc)
	return sc, nil
}

type calibrateFieldArgs struct {
	Points []calibration.FieldPoint `json:"points"`
}

func (s *Server) handleCalibrateField(args json.RawMessage) (interface{}, error) {
	var a calibrateFieldArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	fc, err := calibration.FitField(a.Points)
	if err != nil {
		return nil, err
	}
	s.session.SetFieldCalibration(fc)
	return fc, nil
}

// === Measurement Handlers ===

func (s *Server) handleAddMeasurement(args json.RawMessage) (interface{}, error) {
	var req session.MeasurementRequest
	if err := json.Unmarshal(args, &req); err != nil {
		return nil, err
	}
	e, err := s.session.Add(req)
	if err != nil {
		return nil, err
	}
	s.debugf("measurement %s at B=%.4f T derived=%v", e.ID, e.BField, e.Derived())
	return e, nil
}

type listMeasurementsArgs struct {
	SortByField bool `json:"sort_by_field"`
}

type listMeasurementsResult struct {
	Count        int             `json:"count"`
	Measurements []session.Entry `json:"measurements"`
}

func (s *Server) handleListMeasurements(args json.RawMessage) (interface{}, error) {
	var a listMeasurementsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	entries := s.session.List()
	if a.SortByField {
		entries = s.session.ListByField()
	}
	return &listMeasurementsResult{Count: len(entries), Measurements: entries}, nil
}

type deleteMeasurementArgs struct {
	ID  string `json:"id"`
	All bool   `json:"all"`
}

func (s *Server) handleDeleteMeasurement(args json.RawMessage) (interface{}, error) {
	var a deleteMeasurementArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.All {
		return map[string]interface{}{"deleted": s.session.Clear()}, nil
	}
	if a.ID == "" {
		return nil, errors.New("id is required unless all is set")
	}
	if err := s.session.Delete(a.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": 1, "id": a.ID}, nil
}

type calculateResultsResult struct {
	zeeman.BohrMagnetonResult

	ReferenceBohrMagneton   float64 `json:"reference_bohr_magneton"`
	ReferenceSpecificCharge float64 `json:"reference_specific_charge"`
}

func (s *Server) handleCalculateResults(json.RawMessage) (interface{}, error) {
	return &calculateResultsResult{
		BohrMagnetonResult:      s.session.Results(),
		ReferenceBohrMagneton:   zeeman.ReferenceBohrMagneton,
		ReferenceSpecificCharge: zeeman.ReferenceSpecificCharge,
	}, nil
}

type processMeasurementArgs struct {
	BFieldT      *float64 `json:"b_field_t"`
	WavelengthNM *float64 `json:"wavelength_nm"`
	Current      *float64 `json:"current_a"`
	RInnerMM     *float64 `json:"r_inner_mm"`
	RCenterMM    *float64 `json:"r_center_mm"`
	ROuterMM     *float64 `json:"r_outer_mm"`
}

func (s *Server) handleProcessMeasurement(args json.RawMessage) (interface{}, error) {
	var a processMeasurementArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.BFieldT == nil {
		return nil, errors.New("b_field_t is required")
	}
	nm := s.tuning.GetWavelengthNM()
	if a.WavelengthNM != nil {
		nm = *a.WavelengthNM
	}
	if nm <= 0 {
		return nil, fmt.Errorf("wavelength must be positive, got %g nm", nm)
	}
	raw := zeeman.RawMeasurementInput{
		BField:     *a.BFieldT,
		Wavelength: nm * 1e-9,
		Current:    a.Current,
		RInner:     a.RInnerMM,
		RCenter:    a.RCenterMM,
		ROuter:     a.ROuterMM,
	}
	return s.session.Optics().ProcessMeasurement(raw), nil
}

// === Report Handlers ===

type exportCSVArgs struct {
	OutputPath string `json:"output_path"`
}

type exportCSVResult struct {
	Rows       int    `json:"rows"`
	OutputPath string `json:"output_path,omitempty"`
	CSV        string `json:"csv,omitempty"`
}

func (s *Server) handleExportCSV(args json.RawMessage) (interface{}, error) {
	var a exportCSVArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	ms := s.session.Measurements()
	var field *calibration.FieldCalibration
	if fc, ok := s.session.FieldCalibration(); ok {
		field = &fc
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, ms, field); err != nil {
		return nil, err
	}

	if a.OutputPath == "" {
		return &exportCSVResult{Rows: len(ms), CSV: buf.String()}, nil
	}

	path := filepath.Clean(a.OutputPath)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
	default:
		return nil, fmt.Errorf("output file must have .csv, .tsv or .txt extension, got %q", filepath.Ext(path))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return &exportCSVResult{Rows: len(ms), OutputPath: path}, nil
}

type plotArgs struct {
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
}

type plotResult struct {
	*report.EnergyPlot

	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handlePlot(args json.RawMessage) (interface{}, error) {
	var a plotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := report.DefaultPlotOptions()
	if a.WidthIn > 0 {
		opts.Width = vg.Length(a.WidthIn) * vg.Inch
	}
	if a.HeightIn > 0 {
		opts.Height = vg.Length(a.HeightIn) * vg.Inch
	}

	p, err := report.PlotEnergyShifts(s.session.Measurements(), opts)
	if err != nil {
		return nil, err
	}
	return &plotResult{EnergyPlot: p, ImageBase64: p.Base64(), MimeType: "image/png"}, nil
}

// === Display Readout Handlers ===

type readDisplayArgs struct {
	Path     string   `json:"path"`
	X1       int      `json:"x1"`
	Y1       int      `json:"y1"`
	X2       int      `json:"x2"`
	Y2       int      `json:"y2"`
	Scale    *float64 `json:"scale"`
	Contrast *float64 `json:"contrast"`
	Invert   bool     `json:"invert"`
}

func (s *Server) handleReadDisplay(args json.RawMessage) (interface{}, error) {
	var a readDisplayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	opts := readout.DefaultOptions()
	if a.Scale != nil {
		opts.Scale = *a.Scale
	}
	if a.Contrast != nil {
		opts.Contrast = *a.Contrast
	}
	opts.Invert = a.Invert

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return readout.ReadDisplay(img, imaging.Region{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}, opts)
}
