// Package detection locates interference rings in enhanced ring photographs.
//
// Given an enhanced single-channel grid, a user-clicked approximate center and
// an annulus bracketing one ring, DetectRing returns the ring's center, its
// centerline radius and its inner and outer half-maximum radii.
//
// # Pipeline
//
//  1. Candidates: a small stride-2 grid of centers around the click
//  2. Circle transform: for each candidate the grid is masked to the annulus
//     and a gradient Hough transform (Canny edges, gradient-line voting,
//     smoothed peak search, least-squares center fit, edge-pair radius) runs
//     over the masked region. Edges on the mask's own step are ignored
//  3. Scoring: each circle found is weighted by drift from the click, ring
//     brightness under the circle, perimeter coverage and agreement with the
//     candidate center (see ScoringWeights)
//  4. Selection: the highest-weight circle over all candidates wins
//  5. Boundaries: the angularly averaged radial profile around the winner is
//     cut at half maximum to give inner and outer radii
//
// Candidates are independent, so step 2 and 3 run on a bounded worker pool.
// Every worker reads the shared grid and writes only its own result slot.
//
// # Backends
//
// The circle transform is implemented in Go. Building with -tags opencv swaps
// in OpenCV's HoughCircles through gocv; everything else is unchanged.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Radii are in pixels. Conversion to millimeters happens in the calibration
// package.
package detection
