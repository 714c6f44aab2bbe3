// Package calibration converts raw bench readings into physical units.
//
// Two calibrations are kept per session:
//
//   - Scale: millimeters per pixel, from two image points a known distance
//     apart (a ruler or reticle photographed at the sensor plane)
//   - Field: magnetic field against magnet current, a least-squares line
//     B(G) = slope*I + intercept through gaussmeter readings
//
// Both are pure values. The session package stores them.
package calibration
