// Package imaging loads interference-ring photographs and turns them into the
// intensity grids consumed by ring detection.
//
// The package covers the image side of the pipeline:
//   - Loading and caching decoded images by path (ImageCache)
//   - The immutable PixelGrid representation (Grid), one or three channels
//   - Enhancement: luminance grayscale, Gaussian smoothing and contrast-limited
//     adaptive histogram equalization (CLAHE)
//   - Region cropping and rendering of detected rings over the source image
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
//   - X increases rightward
//   - Y increases downward
//   - For regions, (X1,Y1) is inclusive and (X2,Y2) is exclusive
//
// # Enhancement Backends
//
// CLAHE is implemented in pure Go by default. Building with the "opencv" tag
// switches the equalization step to OpenCV through gocv; the grayscale and
// blur stages are shared by both builds. Backend reports which one is active.
//
// # Thread Safety
//
// Grid values are never mutated after construction, so a single enhanced grid
// may be read by many goroutines at once. ImageCache is safe for concurrent use.
package imaging
