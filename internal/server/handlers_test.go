package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createRingImageFile writes a dark photo with one bright ring of the given
// radius centered at (cx, cy) and returns its path.
func createRingImageFile(t *testing.T, size int, cx, cy, r float64) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBA{40, 10, 10, 255}
			if math.Abs(math.Hypot(float64(x)-cx, float64(y)-cy)-r) <= 2 {
				c = color.RGBA{250, 60, 60, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "ring.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || out == nil {
		return resp
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	return resp
}

func mustSucceed(t *testing.T, resp *MCPResponse) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 120, 60, 60, 30)

	var info struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Format   string `json:"format"`
		Channels int    `json:"channels"`
	}
	mustSucceed(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}, &info))

	if info.Width != 120 || info.Height != 120 {
		t.Errorf("Dimensions: got %dx%d, want 120x120", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.Channels != 3 {
		t.Errorf("Channels: got %d, want 3", info.Channels)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 80, 40, 40, 20)

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	mustSucceed(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}, &dims))
	if dims.Width != 80 || dims.Height != 80 {
		t.Errorf("Dimensions: got %dx%d, want 80x80", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()
	for _, tool := range []string{"image_load", "zeeman_enhance", "zeeman_detect_ring"} {
		resp := callTool(t, s, tool, map[string]interface{}{
			"path":         "/nonexistent/ring.png",
			"radius_lower": 10,
			"radius_upper": 20,
		}, nil)
		if resp.Error == nil {
			t.Errorf("%s: expected error for non-existent file", tool)
			continue
		}
		if resp.Error.Code != -32000 {
			t.Errorf("%s: error code got %d, want -32000", tool, resp.Error.Code)
		}
	}
}

func TestHandleToolsCall_MissingPath(t *testing.T) {
	s := New()
	resp := callTool(t, s, "image_load", map[string]interface{}{}, nil)
	if resp.Error == nil {
		t.Fatal("expected error for missing path")
	}
	if !strings.Contains(resp.Error.Data.(string), "path is required") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()
	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{}, nil)
	if resp.Error == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !strings.Contains(resp.Error.Data.(string), "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`not json`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_Enhance(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 100, 50, 50, 25)

	var res struct {
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		Mean        float64 `json:"mean_intensity"`
		ImageBase64 string  `json:"image_base64"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_enhance", map[string]interface{}{"path": path}, &res))
	if res.Width != 100 || res.Height != 100 {
		t.Errorf("Dimensions: got %dx%d", res.Width, res.Height)
	}
	if res.Mean <= 0 || res.Mean >= 255 {
		t.Errorf("Mean intensity out of range: %v", res.Mean)
	}
	if res.ImageBase64 == "" {
		t.Error("expected enhanced image")
	}

	var noImage struct {
		ImageBase64 string `json:"image_base64"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_enhance", map[string]interface{}{"path": path, "include_image": false}, &noImage))
	if noImage.ImageBase64 != "" {
		t.Error("include_image=false should omit the image")
	}
}

func TestHandleToolsCall_RingProfile(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 120, 60, 60, 30)

	var res struct {
		Profile struct {
			Radii     []float64 `json:"radii"`
			Intensity []float64 `json:"intensity"`
		} `json:"profile"`
		Boundaries *struct {
			Inner float64 `json:"inner_radius"`
			Outer float64 `json:"outer_radius"`
			Peak  float64 `json:"peak_radius"`
		} `json:"boundaries"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_ring_profile", map[string]interface{}{
		"path":     path,
		"center_x": 60,
		"center_y": 60,
		"radius":   30,
	}, &res))

	if len(res.Profile.Radii) != 20 || len(res.Profile.Intensity) != 20 {
		t.Errorf("Profile length: got %d radii, %d values", len(res.Profile.Radii), len(res.Profile.Intensity))
	}
	if res.Boundaries == nil {
		t.Fatal("expected boundaries")
	}
	if math.Abs(res.Boundaries.Peak-30) > 2 {
		t.Errorf("Peak: got %v, want ~30", res.Boundaries.Peak)
	}
	if res.Boundaries.Inner > res.Boundaries.Peak || res.Boundaries.Outer < res.Boundaries.Peak {
		t.Errorf("Boundaries out of order: %+v", *res.Boundaries)
	}
}

func TestHandleToolsCall_DetectRing(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 120, 60, 60, 30)

	var res struct {
		CenterX          float64  `json:"center_x"`
		CenterY          float64  `json:"center_y"`
		RadiusCenterline float64  `json:"radius_centerline"`
		RadiusCenterMM   *float64 `json:"radius_centerline_mm"`
		Overlay          *struct {
			ImageBase64 string `json:"image_base64"`
			RingsDrawn  int    `json:"rings_drawn"`
		} `json:"overlay"`
	}
	args := map[string]interface{}{
		"path":             path,
		"initial_x":        60,
		"initial_y":        60,
		"radius_lower":     18,
		"radius_upper":     42,
		"search_half_size": 0,
		"overlay":          true,
	}
	mustSucceed(t, callTool(t, s, "zeeman_detect_ring", args, &res))

	if math.Abs(res.CenterX-60) > 1 || math.Abs(res.CenterY-60) > 1 {
		t.Errorf("Center: got (%v, %v), want (60, 60)", res.CenterX, res.CenterY)
	}
	if math.Abs(res.RadiusCenterline-30) > 2 {
		t.Errorf("Radius: got %v, want 30", res.RadiusCenterline)
	}
	if res.RadiusCenterMM != nil {
		t.Error("no scale calibrated, mm radius should be absent")
	}
	if res.Overlay == nil || res.Overlay.ImageBase64 == "" || res.Overlay.RingsDrawn == 0 {
		t.Errorf("expected overlay, got %+v", res.Overlay)
	}

	// With a scale the radii are also reported in mm.
	mustSucceed(t, callTool(t, s, "zeeman_calibrate_scale", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 100, "y2": 0, "distance_mm": 1,
	}, nil))
	res.RadiusCenterMM = nil
	mustSucceed(t, callTool(t, s, "zeeman_detect_ring", args, &res))
	if res.RadiusCenterMM == nil || math.Abs(*res.RadiusCenterMM-res.RadiusCenterline*0.01) > 1e-9 {
		t.Errorf("radius_centerline_mm: got %v", res.RadiusCenterMM)
	}
}

func TestHandleToolsCall_DetectRing_InvalidBand(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 60, 30, 30, 15)

	resp := callTool(t, s, "zeeman_detect_ring", map[string]interface{}{
		"path":         path,
		"initial_x":    30,
		"initial_y":    30,
		"radius_lower": 20,
		"radius_upper": 10,
	}, nil)
	if resp.Error == nil {
		t.Fatal("expected error for inverted radius band")
	}
	if !strings.Contains(resp.Error.Data.(string), "invalid detection parameters") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_RenderOverlay(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 100, 50, 50, 25)

	var res struct {
		Width      int `json:"width"`
		RingsDrawn int `json:"rings_drawn"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_render_overlay", map[string]interface{}{
		"path":              path,
		"center_x":          50,
		"center_y":          50,
		"radius_inner":      23,
		"radius_centerline": 25,
	}, &res))
	if res.Width != 100 {
		t.Errorf("Width: got %d", res.Width)
	}
	if res.RingsDrawn != 2 {
		t.Errorf("RingsDrawn: got %d, want 2", res.RingsDrawn)
	}
}

func TestHandleToolsCall_CalibrateField(t *testing.T) {
	s := New()

	var fc struct {
		Slope     float64 `json:"slope_g_per_a"`
		Intercept float64 `json:"intercept_g"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_calibrate_field", map[string]interface{}{
		"points": []map[string]float64{
			{"current_a": 0, "field_g": 0},
			{"current_a": 1, "field_g": 1000},
			{"current_a": 2, "field_g": 2000},
		},
	}, &fc))
	if math.Abs(fc.Slope-1000) > 1e-9 || math.Abs(fc.Intercept) > 1e-9 {
		t.Errorf("Fit: got slope %v intercept %v", fc.Slope, fc.Intercept)
	}

	resp := callTool(t, s, "zeeman_calibrate_field", map[string]interface{}{
		"points": []map[string]float64{{"current_a": 1, "field_g": 1000}},
	}, nil)
	if resp.Error == nil {
		t.Error("expected error for a single calibration point")
	}
}

func TestHandleToolsCall_MeasurementWorkflow(t *testing.T) {
	s := New()

	mustSucceed(t, callTool(t, s, "zeeman_calibrate_scale", map[string]interface{}{
		"x1": 0, "y1": 0, "x2": 0, "y2": 100, "distance_mm": 1,
	}, nil))
	mustSucceed(t, callTool(t, s, "zeeman_calibrate_field", map[string]interface{}{
		"points": []map[string]float64{
			{"current_a": 1, "field_g": 2000},
			{"current_a": 3, "field_g": 6000},
		},
	}, nil))

	var ids []string
	for i, current := range []float64{1, 2, 3} {
		split := 2.0 * float64(i+1)
		var e struct {
			ID        string   `json:"id"`
			BField    float64  `json:"b_field_t"`
			RCenter   *float64 `json:"r_center_mm"`
			DeltaEAvg *float64 `json:"delta_e_avg"`
		}
		mustSucceed(t, callTool(t, s, "zeeman_add_measurement", map[string]interface{}{
			"r_inner_px":  500 - split,
			"r_center_px": 500,
			"r_outer_px":  500 + split,
			"current_a":   current,
		}, &e))
		if e.ID == "" {
			t.Fatal("measurement has no id")
		}
		if math.Abs(e.BField-current*0.2) > 1e-12 {
			t.Errorf("BField: got %v, want %v", e.BField, current*0.2)
		}
		if e.RCenter == nil || math.Abs(*e.RCenter-5) > 1e-12 {
			t.Errorf("RCenter: got %v, want 5 mm", e.RCenter)
		}
		if e.DeltaEAvg == nil {
			t.Error("derived fields missing")
		}
		ids = append(ids, e.ID)
	}

	var list struct {
		Count        int `json:"count"`
		Measurements []struct {
			ID string `json:"id"`
		} `json:"measurements"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_list_measurements", map[string]interface{}{}, &list))
	if list.Count != 3 || list.Measurements[0].ID != ids[0] {
		t.Errorf("List: got %+v", list)
	}

	var results struct {
		Count   int     `json:"count"`
		Average float64 `json:"bohr_magneton_avg"`
		Ref     float64 `json:"reference_bohr_magneton"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_calculate_results", map[string]interface{}{}, &results))
	if results.Count != 3 || results.Average <= 0 {
		t.Errorf("Results: got %+v", results)
	}
	if results.Ref != 9.274e-24 {
		t.Errorf("Reference: got %v", results.Ref)
	}

	var csvRes struct {
		Rows int    `json:"rows"`
		CSV  string `json:"csv"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_export_csv", map[string]interface{}{}, &csvRes))
	if csvRes.Rows != 3 {
		t.Errorf("CSV rows: got %d", csvRes.Rows)
	}
	if !strings.HasPrefix(csvRes.CSV, "I(A)\tB(G)") {
		t.Errorf("CSV header: got %q", strings.SplitN(csvRes.CSV, "\n", 2)[0])
	}

	out := filepath.Join(t.TempDir(), "zeeman.tsv")
	mustSucceed(t, callTool(t, s, "zeeman_export_csv", map[string]interface{}{"output_path": out}, nil))
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if strings.Count(string(data), "\n") != 4 {
		t.Errorf("export file lines: got %q", data)
	}

	resp := callTool(t, s, "zeeman_export_csv", map[string]interface{}{"output_path": filepath.Join(t.TempDir(), "x.exe")}, nil)
	if resp.Error == nil {
		t.Error("expected error for bad export extension")
	}

	var plot struct {
		Points      int    `json:"points"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_plot", map[string]interface{}{"width_in": 4, "height_in": 3}, &plot))
	if plot.Points != 3 || plot.ImageBase64 == "" || plot.MimeType != "image/png" {
		t.Errorf("Plot: got points=%d mime=%s", plot.Points, plot.MimeType)
	}

	mustSucceed(t, callTool(t, s, "zeeman_delete_measurement", map[string]interface{}{"id": ids[1]}, nil))
	resp = callTool(t, s, "zeeman_delete_measurement", map[string]interface{}{"id": ids[1]}, nil)
	if resp.Error == nil {
		t.Error("deleting twice should fail")
	}

	var cleared struct {
		Deleted int `json:"deleted"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_delete_measurement", map[string]interface{}{"all": true}, &cleared))
	if cleared.Deleted != 2 {
		t.Errorf("Deleted: got %d, want 2", cleared.Deleted)
	}

	resp = callTool(t, s, "zeeman_plot", map[string]interface{}{}, nil)
	if resp.Error == nil {
		t.Error("plot of an empty session should fail")
	}
}

func TestHandleToolsCall_AddMeasurementWithoutField(t *testing.T) {
	s := New()
	resp := callTool(t, s, "zeeman_add_measurement", map[string]interface{}{"current_a": 1.5}, nil)
	if resp.Error == nil {
		t.Fatal("expected error without field calibration")
	}
	if !strings.Contains(resp.Error.Data.(string), "no magnetic field") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_ProcessMeasurement(t *testing.T) {
	s := New()

	var m struct {
		AlphaCenter *float64 `json:"alpha_c"`
		DeltaEInner *float64 `json:"delta_e_i"`
		DeltaEOuter *float64 `json:"delta_e_o"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_process_measurement", map[string]interface{}{
		"b_field_t":   0.5,
		"r_inner_mm":  4.9,
		"r_center_mm": 5.0,
		"r_outer_mm":  5.1,
	}, &m))
	if m.AlphaCenter == nil || math.Abs(*m.AlphaCenter-math.Atan(5.0/150)) > 1e-12 {
		t.Errorf("AlphaCenter: got %v", m.AlphaCenter)
	}
	if m.DeltaEInner == nil || *m.DeltaEInner >= 0 || m.DeltaEOuter == nil || *m.DeltaEOuter <= 0 {
		t.Errorf("Energy shifts: got %v, %v", m.DeltaEInner, m.DeltaEOuter)
	}

	var partial struct {
		DeltaEInner *float64 `json:"delta_e_i"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_process_measurement", map[string]interface{}{
		"b_field_t":   0.5,
		"r_center_mm": 5.0,
	}, &partial))
	if partial.DeltaEInner != nil {
		t.Error("missing radii should leave derived fields null")
	}

	if resp := callTool(t, s, "zeeman_process_measurement", map[string]interface{}{}, nil); resp.Error == nil {
		t.Error("expected error without b_field_t")
	}

	var stored struct {
		Count int `json:"count"`
	}
	mustSucceed(t, callTool(t, s, "zeeman_list_measurements", map[string]interface{}{}, &stored))
	if stored.Count != 0 {
		t.Errorf("process_measurement must not store, got %d", stored.Count)
	}
}

func TestHandleToolsCall_ReadDisplay(t *testing.T) {
	s := New()
	path := createRingImageFile(t, 60, 30, 30, 10)

	resp := callTool(t, s, "zeeman_read_display", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 200, "y2": 10,
	}, nil)
	if resp.Error == nil {
		t.Error("expected error for region outside the image")
	}

	// Without an OCR backend the call fails cleanly; with one it may or may
	// not find a number in a ring photo, but must not crash.
	_ = callTool(t, s, "zeeman_read_display", map[string]interface{}{
		"path": path, "x1": 0, "y1": 0, "x2": 60, "y2": 20,
	}, nil)
}
