// Package readout reads numbers off instrument displays in bench photos.
//
// A photo of the ammeter or gaussmeter is cropped to the display, upscaled
// and converted to high-contrast grayscale, then passed to Tesseract. The
// first decimal number in the recognized text is the reading.
//
// # Prerequisites
//
// OCR needs the Tesseract library and is compiled in with -tags tesseract:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Without the tag, ReadDisplay returns ErrUnavailable. ParseReading and
// Prepare work in every build.
package readout
