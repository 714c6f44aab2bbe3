package imaging

import (
	"image"
	"math"
)

const histBins = 256

// claheGo performs contrast-limited adaptive histogram equalization.
//
// The image is divided into a tiles x tiles grid. Each tile gets its own
// histogram, clipped at clipLimit times the uniform bin height, with the
// clipped excess spread evenly across all bins. The clipped histograms become
// per-tile lookup tables, and every pixel is mapped by bilinear interpolation
// between the four nearest tile centers so tile seams do not show.
//
// Images smaller than the tile grid use fewer, one-pixel-wide tiles.
func claheGo(src *image.Gray, clipLimit float64, tiles int) *image.Gray {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return out
	}

	tileW := (width + tiles - 1) / tiles
	tileH := (height + tiles - 1) / tiles
	nx := (width + tileW - 1) / tileW
	ny := (height + tileH - 1) / tileH

	luts := make([][histBins]uint8, nx*ny)
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, width), minInt(y0+tileH, height)
			luts[ty*nx+tx] = tileLUT(src, x0, y0, x1, y1, clipLimit)
		}
	}

	invW := 1.0 / float64(tileW)
	invH := 1.0 / float64(tileH)
	for y := 0; y < height; y++ {
		fy := float64(y)*invH - 0.5
		ty1 := int(math.Floor(fy))
		ty2 := ty1 + 1
		wy := fy - float64(ty1)
		ty1 = clamp(ty1, 0, ny-1)
		ty2 = clamp(ty2, 0, ny-1)

		row := src.Pix[y*src.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < width; x++ {
			fx := float64(x)*invW - 0.5
			tx1 := int(math.Floor(fx))
			tx2 := tx1 + 1
			wx := fx - float64(tx1)
			tx1 = clamp(tx1, 0, nx-1)
			tx2 = clamp(tx2, 0, nx-1)

			v := row[x]
			top := float64(luts[ty1*nx+tx1][v])*(1-wx) + float64(luts[ty1*nx+tx2][v])*wx
			bottom := float64(luts[ty2*nx+tx1][v])*(1-wx) + float64(luts[ty2*nx+tx2][v])*wx
			dst[x] = uint8(clamp(int(math.Round(top*(1-wy)+bottom*wy)), 0, 255))
		}
	}
	return out
}

// tileLUT builds the clipped-histogram equalization table for one tile.
func tileLUT(src *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [histBins]uint8 {
	var hist [histBins]int
	for y := y0; y < y1; y++ {
		row := src.Pix[y*src.Stride:]
		for x := x0; x < x1; x++ {
			hist[row[x]]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	limit := int(clipLimit * float64(area) / histBins)
	if limit < 1 {
		limit = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}

	batch := excess / histBins
	residual := excess - batch*histBins
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := histBins / residual
		if step < 1 {
			step = 1
		}
		for i := 0; i < histBins && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [histBins]uint8
	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(clamp(int(math.Round(float64(sum)*scale)), 0, 255))
	}
	return lut
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

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
