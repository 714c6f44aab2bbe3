package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/zeeman-rings-mcp/internal/detection"
	"github.com/ironsheep/zeeman-rings-mcp/internal/imaging"
)

var errMissingPath = errors.New("path is required")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "zeeman_detect_ring").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	s.debugf("tool %s took %s (err=%v)", params.Name, time.Since(start), err)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Ring Analysis
	case "zeeman_enhance":
		return s.handleEnhance(args)
	case "zeeman_ring_profile":
		return s.handleRingProfile(args)
	case "zeeman_detect_ring":
		return s.handleDetectRing(args)
	case "zeeman_render_overlay":
		return s.handleRenderOverlay(args)

	// Calibration
	case "zeeman_calibrate_scale":
		return s.handleCalibrateScale(args)
	case "zeeman_calibrate_field":
		return s.handleCalibrateField(args)

	// Measurements
	case "zeeman_add_measurement":
		return s.handleAddMeasurement(args)
	case "zeeman_list_measurements":
		return s.handleListMeasurements(args)
	case "zeeman_delete_measurement":
		return s.handleDeleteMeasurement(args)
	case "zeeman_calculate_results":
		return s.handleCalculateResults(args)
	case "zeeman_process_measurement":
		return s.handleProcessMeasurement(args)

	// Reports
	case "zeeman_export_csv":
		return s.handleExportCSV(args)
	case "zeeman_plot":
		return s.handlePlot(args)

	// Display Readout
	case "zeeman_read_display":
		return s.handleReadDisplay(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Ring Analysis Handlers ===

type enhanceArgs struct {
	Path         string `json:"path"`
	IncludeImage *bool  `json:"include_image"`
}

type enhanceResult struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Mean        float64 `json:"mean_intensity"`
	StdDev      float64 `json:"stddev_intensity"`
	ImageBase64 string  `json:"image_base64,omitempty"`
	MimeType    string  `json:"mime_type,omitempty"`
}

func (s *Server) handleEnhance(args json.RawMessage) (interface{}, error) {
	var a enhanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	g, err := s.cache.Enhanced(a.Path, s.tuning.EnhanceOptions())
	if err != nil {
		return nil, err
	}

	gray := g.Gray()
	values := make([]float64, len(gray.Pix))
	for i, v := range gray.Pix {
		values[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(values, nil)

	result := &enhanceResult{
		Width:  g.Width(),
		Height: g.Height(),
		Mean:   mean,
		StdDev: std,
	}
	if a.IncludeImage == nil || *a.IncludeImage {
		var buf bytes.Buffer
		if err := png.Encode(&buf, gray); err != nil {
			return nil, fmt.Errorf("failed to encode enhanced image: %w", err)
		}
		result.ImageBase64 = base64.StdEncoding.EncodeToString(buf.Bytes())
		result.MimeType = "image/png"
	}
	return result, nil
}

type ringProfileArgs struct {
	Path         string   `json:"path"`
	CenterX      float64  `json:"center_x"`
	CenterY      float64  `json:"center_y"`
	Radius       float64  `json:"radius"`
	HalfWidth    *float64 `json:"half_width"`
	AngleSamples *int     `json:"angle_samples"`
}

type ringProfileResult struct {
	Profile         *detection.RadialProfile  `json:"profile"`
	Boundaries      *detection.RingBoundaries `json:"boundaries,omitempty"`
	BoundariesError string                    `json:"boundaries_error,omitempty"`
}

func (s *Server) handleRingProfile(args json.RawMessage) (interface{}, error) {
	var a ringProfileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	opts := s.tuning.ProfileOptions()
	if a.HalfWidth != nil {
		opts.HalfWidth = *a.HalfWidth
	}
	if a.AngleSamples != nil {
		opts.AngleSamples = *a.AngleSamples
	}

	g, err := s.cache.Enhanced(a.Path, s.tuning.EnhanceOptions())
	if err != nil {
		return nil, err
	}
	profile, err := detection.ComputeRadialProfile(g, a.CenterX, a.CenterY, a.Radius, opts)
	if err != nil {
		return nil, err
	}

	result := &ringProfileResult{Profile: profile}
	if b, err := profile.Boundaries(); err != nil {
		result.BoundariesError = err.Error()
	} else {
		result.Boundaries = b
	}
	return result, nil
}

type detectRingArgs struct {
	Path           string `json:"path"`
	InitialX       int    `json:"initial_x"`
	InitialY       int    `json:"initial_y"`
	RadiusLower    int    `json:"radius_lower"`
	RadiusUpper    int    `json:"radius_upper"`
	SearchHalfSize *int   `json:"search_half_size"`
	Overlay        bool   `json:"overlay"`
}

type detectRingResult struct {
	*detection.DetectionResult

	MMPerPixel         *float64 `json:"mm_per_pixel,omitempty"`
	RadiusInnerMM      *float64 `json:"radius_inner_mm,omitempty"`
	RadiusCenterlineMM *float64 `json:"radius_centerline_mm,omitempty"`
	RadiusOuterMM      *float64 `json:"radius_outer_mm,omitempty"`

	Overlay *imaging.OverlayResult `json:"overlay,omitempty"`
}

func (s *Server) handleDetectRing(args json.RawMessage) (interface{}, error) {
	var a detectRingArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	req := detection.RingRequest{
		InitialX:       a.InitialX,
		InitialY:       a.InitialY,
		RadiusLower:    a.RadiusLower,
		RadiusUpper:    a.RadiusUpper,
		SearchHalfSize: s.tuning.GetSearchHalfSize(),
	}
	if a.SearchHalfSize != nil {
		req.SearchHalfSize = *a.SearchHalfSize
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := s.cache.Enhanced(a.Path, s.tuning.EnhanceOptions())
	if err != nil {
		return nil, err
	}
	det, err := detection.DetectRingWithOptions(g, req, s.tuning.DetectOptions())
	if err != nil {
		return nil, err
	}
	s.debugf("ring at (%.0f, %.0f) r=%.0f weight=%.3f from %d candidates, %d circles",
		det.CenterX, det.CenterY, det.RadiusCenterline, det.Weight, det.CandidatesTried, det.CirclesScored)

	result := &detectRingResult{DetectionResult: det}
	if sc, ok := s.session.Scale(a.Path); ok {
		result.MMPerPixel = &sc.MMPerPixel
		result.RadiusCenterlineMM = floatPtr(sc.ToMM(det.RadiusCenterline))
		if det.RadiusInner != nil {
			result.RadiusInnerMM = floatPtr(sc.ToMM(*det.RadiusInner))
		}
		if det.RadiusOuter != nil {
			result.RadiusOuterMM = floatPtr(sc.ToMM(*det.RadiusOuter))
		}
	}

	if a.Overlay {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		result.Overlay, err = imaging.RingOverlay(img, det.CenterX, det.CenterY, ringMarkers(det.RadiusInner, &det.RadiusCenterline, det.RadiusOuter), true)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

type renderOverlayArgs struct {
	Path             string   `json:"path"`
	CenterX          float64  `json:"center_x"`
	CenterY          float64  `json:"center_y"`
	RadiusInner      *float64 `json:"radius_inner"`
	RadiusCenterline *float64 `json:"radius_centerline"`
	RadiusOuter      *float64 `json:"radius_outer"`
	ShowLabels       *bool    `json:"show_labels"`
}

func (s *Server) handleRenderOverlay(args json.RawMessage) (interface{}, error) {
	var a renderOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errMissingPath
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	labels := a.ShowLabels == nil || *a.ShowLabels
	return imaging.RingOverlay(img, a.CenterX, a.CenterY, ringMarkers(a.RadiusInner, a.RadiusCenterline, a.RadiusOuter), labels)
}

// ringMarkers lists the defined radii in inner, centerline, outer order.
func ringMarkers(inner, centerline, outer *float64) []imaging.RingMarker {
	var rings []imaging.RingMarker
	for _, r := range []struct {
		label string
		v     *float64
	}{
		{"inner", inner},
		{"centerline", centerline},
		{"outer", outer},
	} {
		if r.v != nil {
			rings = append(rings, imaging.RingMarker{Label: r.label, Radius: *r.v})
		}
	}
	return rings
}

func floatPtr(v float64) *float64 {
	return &v
}
