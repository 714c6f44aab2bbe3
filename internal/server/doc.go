// Package server implements the MCP (Model Context Protocol) server for
// Zeeman ring analysis.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Image information:
//   - image_load, image_dimensions
//
// Ring analysis (pixel units):
//   - zeeman_enhance: grayscale, blur and CLAHE a photo
//   - zeeman_ring_profile: radial profile and half-maximum radii
//   - zeeman_detect_ring: candidate search and weighted circle fit
//   - zeeman_render_overlay: draw rings over the photo
//
// Calibration:
//   - zeeman_calibrate_scale: millimeters per pixel from two points
//   - zeeman_calibrate_field: field against magnet current
//
// Measurements and results:
//   - zeeman_add_measurement, zeeman_list_measurements,
//     zeeman_delete_measurement
//   - zeeman_calculate_results: Bohr magneton and e/m
//   - zeeman_process_measurement: stateless physics for one record
//
// Reports:
//   - zeeman_export_csv, zeeman_plot
//
// Display readout:
//   - zeeman_read_display: OCR of an ammeter or gaussmeter
//
// # State
//
// Loaded photos and their enhanced grids are cached by path for the life of
// the process. Measurements and calibrations live in one in-memory session
// and are lost on exit; export them with zeeman_export_csv.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.WithTuning(cfg))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
