package bootstrap

import (
	"context"
	"fmt"

	appconfig "github.com/wolfman30/appointment-intake/internal/config"
	"github.com/wolfman30/appointment-intake/internal/ocr"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

// BuildOCREngine selects the engine named by OCR_ENGINE.
func BuildOCREngine(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (ocr.Engine, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.OCREngine {
	case "", "tesseract":
		logger.Info("ocr engine configured", "engine", "tesseract", "languages", cfg.TesseractLanguages)
		return ocr.NewTesseractEngine(ocr.TesseractConfig{
			Path:      cfg.TesseractPath,
			Languages: cfg.TesseractLanguages,
		}, logger), func() {}, nil
	case "gemini":
		engine, err := ocr.NewGeminiEngine(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini ocr: %w", err)
		}
		logger.Info("ocr engine configured", "engine", "gemini", "model", cfg.GeminiModel)
		return engine, func() { _ = engine.Close() }, nil
	case "none", "disabled":
		logger.Warn("ocr disabled; image uploads will need clarification")
		return ocr.DisabledEngine{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown OCR_ENGINE %q", cfg.OCREngine)
	}
}
