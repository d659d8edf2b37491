// Package ocr wraps the external text recognition engine. A Page goes in, the
// recognized text and a confidence score in [0,100] come out. Retries, if any,
// belong to the caller.
package ocr

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/config"
	"github.com/intelliscan/intelliscan/internal/model"
)

var (
	// ErrEngineUnavailable indicates the engine cannot be reached or executed
	// (not installed, binary missing). Fatal for the enclosing pipeline run.
	ErrEngineUnavailable = eris.New("ocr: engine unavailable")

	// ErrEngineError indicates the engine ran but failed to process the page.
	ErrEngineError = eris.New("ocr: engine error")
)

// Engine converts one raster page to recognized text plus a confidence score.
type Engine interface {
	Recognize(ctx context.Context, page model.Page) (model.PageResult, error)

	// Version probes the underlying engine and reports its version string.
	// Used by health checks; a failure maps to ErrEngineUnavailable.
	Version(ctx context.Context) (string, error)
}

// NewEngine creates an Engine based on config.
func NewEngine(cfg config.OCRConfig) (Engine, error) {
	switch cfg.Provider {
	case "gosseract", "":
		return NewGosseract(cfg.Languages), nil
	case "cli":
		return NewTesseractCLI(cfg.TesseractPath, cfg.Languages), nil
	default:
		return nil, eris.Errorf("ocr: unknown provider %q", cfg.Provider)
	}
}

// clampConfidence bounds an engine-reported score to [0,100].
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
