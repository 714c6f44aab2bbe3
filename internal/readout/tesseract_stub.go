//go:build !tesseract

package readout

import "image"

func recognize(image.Image, string) (string, float64, error) {
	return "", 0, ErrUnavailable
}

// BackendInfo reports that no OCR backend is compiled in.
func BackendInfo() Info {
	return Info{Available: false, Backend: "none"}
}
