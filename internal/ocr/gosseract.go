package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/model"
)

// Gosseract recognizes text using the in-process Tesseract binding.
// A fresh client is created per page; the binding is not safe for concurrent
// use of a single client.
type Gosseract struct {
	languages []string
}

// NewGosseract creates a Tesseract-backed engine with optional language hints.
func NewGosseract(languages []string) *Gosseract {
	return &Gosseract{languages: languages}
}

// Recognize runs Tesseract on the page image. Confidence is the mean of
// word-level confidences; a page with no recognized words yields empty text
// and confidence 0.
func (g *Gosseract) Recognize(ctx context.Context, page model.Page) (model.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return model.PageResult{}, err
	}

	c := gosseract.NewClient()
	defer c.Close() //nolint:errcheck

	if err := c.SetImageFromBytes(page.Image); err != nil {
		return model.PageResult{}, eris.Wrapf(ErrEngineError, "set image for page %d: %v", page.Index, err)
	}
	if len(g.languages) > 0 {
		if err := c.SetLanguage(g.languages...); err != nil {
			return model.PageResult{}, eris.Wrapf(ErrEngineError, "set languages: %v", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return model.PageResult{}, eris.Wrapf(ErrEngineError, "recognize page %d: %v", page.Index, err)
	}
	text = strings.TrimSpace(text)

	conf := wordConfidence(c)
	if text == "" {
		// Blank page: no meaningful signal from the engine.
		return model.PageResult{PageIndex: page.Index, Text: "", Confidence: 0}, nil
	}

	return model.PageResult{
		PageIndex:  page.Index,
		Text:       text,
		Confidence: clampConfidence(conf),
	}, nil
}

// Version reports the Tesseract library version.
func (g *Gosseract) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close() //nolint:errcheck
	v := c.Version()
	if v == "" {
		return "", eris.Wrap(ErrEngineUnavailable, "tesseract version probe")
	}
	return v, nil
}

// wordConfidence averages word-level recognition confidences, skipping
// non-positive entries the way the engine reports them for layout artifacts.
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	var n int
	for _, b := range boxes {
		if b.Confidence <= 0 {
			continue
		}
		sum += b.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
