//go:build tesseract

package readout

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// displayCharacters limits recognition to what meters show.
const displayCharacters = "0123456789.,-+"

func recognize(img image.Image, language string) (string, float64, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", 0, fmt.Errorf("failed to encode display image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		return "", 0, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", 0, fmt.Errorf("failed to set page mode: %w", err)
	}
	if err := client.SetWhitelist(displayCharacters); err != nil {
		return "", 0, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("OCR failed: %w", err)
	}

	// Word confidences are optional; text alone is still a result.
	var confidence float64
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil && len(boxes) > 0 {
		var sum float64
		for _, box := range boxes {
			sum += box.Confidence
		}
		confidence = sum / float64(len(boxes)) / 100
	}
	return text, confidence, nil
}

// BackendInfo reports the Tesseract version.
func BackendInfo() Info {
	client := gosseract.NewClient()
	defer client.Close()
	return Info{Available: true, Backend: "gosseract", Version: client.Version()}
}
