package detection

import (
	"image"
	"math"
)

// edgeMap is the output of cannyEdges: a thinned binary edge mask plus the
// Sobel gradients the Hough transform votes along.
type edgeMap struct {
	width  int
	height int
	edge   []bool
	gx     []float64
	gy     []float64
}

// cannyEdges performs Canny edge detection on an 8-bit gray image.
//
// # Algorithm
//
//  1. Pre-smoothing: a 3x3 binomial kernel ([1 2 1]/4 along each axis) so
//     gradient directions on curved edges are not dominated by pixel steps
//  2. Gradient computation: 3x3 Sobel operators for X and Y gradients on the
//     smoothed intensities, magnitude = sqrt(Gx² + Gy²)
//  3. Non-maximum suppression: edges are thinned to 1-pixel width by keeping
//     only local maxima along the quantized gradient direction
//  4. Hysteresis thresholding: pixels at or above high are strong edges,
//     pixels between low and high are kept only when 8-connected (directly or
//     through other weak pixels) to a strong edge
//
// The pre-smoothing scales an ideal step's peak magnitude by 3/4, so a step of
// height A reaches 3A.
func cannyEdges(src *image.Gray, low, high float64) *edgeMap {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	n := width * height
	em := &edgeMap{
		width:  width,
		height: height,
		edge:   make([]bool, n),
		gx:     make([]float64, n),
		gy:     make([]float64, n),
	}
	if width < 3 || height < 3 {
		return em
	}

	smoothed := binomialSmooth(src)
	pixel := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return smoothed[y*width+x]
	}

	magnitude := make([]float64, n)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -pixel(x-1, y-1) + pixel(x+1, y-1) -
				2*pixel(x-1, y) + 2*pixel(x+1, y) -
				pixel(x-1, y+1) + pixel(x+1, y+1)
			gy := -pixel(x-1, y-1) - 2*pixel(x, y-1) - pixel(x+1, y-1) +
				pixel(x-1, y+1) + 2*pixel(x, y+1) + pixel(x+1, y+1)
			i := y*width + x
			em.gx[i] = gx
			em.gy[i] = gy
			magnitude[i] = math.Sqrt(gx*gx + gy*gy)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, n)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag < low {
				continue
			}

			angle := math.Atan2(em.gy[i], em.gx[i])
			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			default:
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Hysteresis: grow from every strong pixel through connected weak pixels.
	stack := make([]int, 0, 256)
	for i, v := range suppressed {
		if v >= high && !em.edge[i] {
			em.edge[i] = true
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%width, p/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					qx, qy := px+dx, py+dy
					if qx < 0 || qx >= width || qy < 0 || qy >= height {
						continue
					}
					q := qy*width + qx
					if !em.edge[q] && suppressed[q] >= low {
						em.edge[q] = true
						stack = append(stack, q)
					}
				}
			}
		}
	}

	return em
}

// binomialSmooth returns src filtered with the separable [1 2 1]/4 kernel,
// replicating border pixels.
func binomialSmooth(src *image.Gray) []float64 {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	at := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(src.Pix[y*src.Stride+x])
	}

	rows := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			rows[y*width+x] = (at(x-1, y) + 2*at(x, y) + at(x+1, y)) / 4
		}
	}
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		up := clamp(y-1, 0, height-1) * width
		down := clamp(y+1, 0, height-1) * width
		for x := 0; x < width; x++ {
			out[y*width+x] = (rows[up+x] + 2*rows[y*width+x] + rows[down+x]) / 4
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
