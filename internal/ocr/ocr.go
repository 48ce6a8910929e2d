// Package ocr turns appointment images into raw text with a confidence score.
package ocr

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedMIME is returned for uploads that are not a known image type.
	ErrUnsupportedMIME = errors.New("ocr: unsupported MIME type")
	// ErrDisabled is returned by the engine used when OCR is turned off.
	ErrDisabled = errors.New("ocr: engine disabled")
)

// SupportedMIMETypes lists the image types accepted for OCR.
var SupportedMIMETypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/webp",
	"image/tiff",
}

// IsSupported reports whether mimeType can be sent to an engine.
func IsSupported(mimeType string) bool {
	return slices.Contains(SupportedMIMETypes, strings.ToLower(strings.TrimSpace(mimeType)))
}

// Result is text read from an image. Confidence is in [0,1].
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in an image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, mimeType string) (Result, error)
}

// FromText wraps typed text. Typed text is always fully trusted.
func FromText(text string) Result {
	return Result{Text: strings.TrimSpace(text), Confidence: 1.0}
}

// DisabledEngine refuses every image.
type DisabledEngine struct{}

func (DisabledEngine) Name() string { return "none" }

func (DisabledEngine) Recognize(context.Context, []byte, string) (Result, error) {
	return Result{}, ErrDisabled
}

// collapseWhitespace joins lines into a single space separated string.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
