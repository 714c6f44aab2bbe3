package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func propDefault(typ, description string, def interface{}) map[string]interface{} {
	p := prop(typ, description)
	p["default"] = def
	return p
}

func pathProp() map[string]interface{} {
	return prop("string", "Absolute path to the image file")
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load a ring photograph and return its dimensions, format and channel count. The image is cached for later calls.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": pathProp(),
			}, "path"),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": pathProp(),
			}, "path"),
		},

		// Ring Analysis
		{
			Name:        "zeeman_enhance",
			Description: "Enhance a ring photograph (grayscale, Gaussian blur, CLAHE) and return intensity statistics and optionally the enhanced image as base64 PNG.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":          pathProp(),
				"include_image": propDefault("boolean", "Return the enhanced image as base64 PNG", true),
			}, "path"),
		},
		{
			Name:        "zeeman_ring_profile",
			Description: "Compute the angularly averaged radial intensity profile around a center and find the ring's inner and outer half-maximum radii.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":          pathProp(),
				"center_x":      prop("number", "Ring center X in pixels"),
				"center_y":      prop("number", "Ring center Y in pixels"),
				"radius":        prop("number", "Estimated ring radius in pixels"),
				"half_width":    prop("number", "Scan half width in pixels (default from tuning, 10)"),
				"angle_samples": prop("integer", "Angles sampled per radius (default from tuning, 360)"),
			}, "path", "center_x", "center_y", "radius"),
		},
		{
			Name:        "zeeman_detect_ring",
			Description: "Find the ring closest to a clicked center inside a radius band. Searches candidate centers around the click, fits circles with a Hough transform and returns the best-scoring circle with inner/outer radii. Radii are also given in mm when a pixel scale is calibrated.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":             pathProp(),
				"initial_x":        prop("integer", "Approximate ring center X (pixels)"),
				"initial_y":        prop("integer", "Approximate ring center Y (pixels)"),
				"radius_lower":     prop("integer", "Lower radius limit in pixels (exclusive)"),
				"radius_upper":     prop("integer", "Upper radius limit in pixels (inclusive)"),
				"search_half_size": prop("integer", "Candidate centers span ±this many pixels (default 10)"),
				"overlay":          propDefault("boolean", "Also return the detected rings drawn over the photo", false),
			}, "path", "initial_x", "initial_y", "radius_lower", "radius_upper"),
		},
		{
			Name:        "zeeman_render_overlay",
			Description: "Draw a center cross and inner, centerline and outer circles over a photo. Returns base64 PNG.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":              pathProp(),
				"center_x":          prop("number", "Center X in pixels"),
				"center_y":          prop("number", "Center Y in pixels"),
				"radius_inner":      prop("number", "Inner radius in pixels"),
				"radius_centerline": prop("number", "Centerline radius in pixels"),
				"radius_outer":      prop("number", "Outer radius in pixels"),
				"show_labels":       propDefault("boolean", "Print radii next to the circles", true),
			}, "path", "center_x", "center_y"),
		},

		// Calibration
		{
			Name:        "zeeman_calibrate_scale",
			Description: "Set the pixel scale from two points a known distance apart. The scale is stored for the image (and as the session default).",
			InputSchema: objectSchema(map[string]interface{}{
				"path":        prop("string", "Image the scale belongs to (optional)"),
				"x1":          prop("number", "First point X"),
				"y1":          prop("number", "First point Y"),
				"x2":          prop("number", "Second point X"),
				"y2":          prop("number", "Second point Y"),
				"distance_mm": prop("number", "Known distance between the points in millimeters"),
			}, "x1", "y1", "x2", "y2", "distance_mm"),
		},
		{
			Name:        "zeeman_calibrate_field",
			Description: "Fit B(G) = slope*I + intercept through gaussmeter readings. Needs at least two distinct currents. The fit converts currents to fields for later measurements.",
			InputSchema: objectSchema(map[string]interface{}{
				"points": map[string]interface{}{
					"type":        "array",
					"description": "Calibration readings",
					"items": objectSchema(map[string]interface{}{
						"current_a": prop("number", "Magnet current in amperes"),
						"field_g":   prop("number", "Measured field in gauss"),
					}, "current_a", "field_g"),
				},
			}, "points"),
		},

		// Measurements
		{
			Name:        "zeeman_add_measurement",
			Description: "Store a measurement. Radii are in pixels and converted with the pixel scale; the field is given directly in tesla or derived from the current through the field calibration.",
			InputSchema: objectSchema(map[string]interface{}{
				"image_path":    prop("string", "Image the radii were measured on (selects its pixel scale)"),
				"r_inner_px":    prop("number", "Inner ring radius in pixels"),
				"r_center_px":   prop("number", "Centerline ring radius in pixels"),
				"r_outer_px":    prop("number", "Outer ring radius in pixels"),
				"mm_per_pixel":  prop("number", "Override the stored pixel scale"),
				"current_a":     prop("number", "Magnet current in amperes"),
				"b_field_t":     prop("number", "Magnetic field in tesla (overrides the field calibration)"),
				"wavelength_nm": prop("number", "Line wavelength in nm (default 643.8)"),
			}),
		},
		{
			Name:        "zeeman_list_measurements",
			Description: "List stored measurements with their derived angles, wavelength shifts and energy shifts.",
			InputSchema: objectSchema(map[string]interface{}{
				"sort_by_field": propDefault("boolean", "Sort by magnetic field instead of insertion order", false),
			}),
		},
		{
			Name:        "zeeman_delete_measurement",
			Description: "Delete a stored measurement by id, or all measurements.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":  prop("string", "Measurement id"),
				"all": propDefault("boolean", "Delete every measurement", false),
			}),
		},
		{
			Name:        "zeeman_calculate_results",
			Description: "Estimate the Bohr magneton and electron specific charge by regressing |ΔE| on B over the stored measurements.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "zeeman_process_measurement",
			Description: "Derive angles and shifts for one measurement without storing it. Radii are in millimeters.",
			InputSchema: objectSchema(map[string]interface{}{
				"b_field_t":     prop("number", "Magnetic field in tesla"),
				"wavelength_nm": prop("number", "Line wavelength in nm (default 643.8)"),
				"current_a":     prop("number", "Magnet current in amperes"),
				"r_inner_mm":    prop("number", "Inner ring radius in mm"),
				"r_center_mm":   prop("number", "Centerline ring radius in mm"),
				"r_outer_mm":    prop("number", "Outer ring radius in mm"),
			}, "b_field_t"),
		},

		// Reports
		{
			Name:        "zeeman_export_csv",
			Description: "Export stored measurements as a tab-delimited table. Writes to output_path when given, otherwise returns the text.",
			InputSchema: objectSchema(map[string]interface{}{
				"output_path": prop("string", "Absolute path of the .csv, .tsv or .txt file to write"),
			}),
		},
		{
			Name:        "zeeman_plot",
			Description: "Plot |ΔE| against B for the inner and outer shifts with least-squares fit lines. Returns base64 PNG.",
			InputSchema: objectSchema(map[string]interface{}{
				"width_in":  propDefault("number", "Plot width in inches", 8.0),
				"height_in": propDefault("number", "Plot height in inches", 6.0),
			}),
		},

		// Display Readout
		{
			Name:        "zeeman_read_display",
			Description: "Read the number shown on an ammeter or gaussmeter display in a photo using OCR.",
			InputSchema: objectSchema(map[string]interface{}{
				"path":     pathProp(),
				"x1":       prop("integer", "Display left edge X (inclusive)"),
				"y1":       prop("integer", "Display top edge Y (inclusive)"),
				"x2":       prop("integer", "Display right edge X (exclusive)"),
				"y2":       prop("integer", "Display bottom edge Y (exclusive)"),
				"scale":    propDefault("number", "Upscale factor before OCR", 3.0),
				"contrast": propDefault("number", "Contrast adjustment in percent", 40.0),
				"invert":   propDefault("boolean", "Invert light-on-dark displays", false),
			}, "path", "x1", "y1", "x2", "y2"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
