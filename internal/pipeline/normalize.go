package pipeline

import (
	"bytes"
	"context"
	"image"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	// Raster decoders for input validation.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/intelliscan/intelliscan/internal/model"
)

// Rasterizer converts PDF bytes into an ordered sequence of raster pages.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]model.Page, error)
}

// Normalizer turns a supported input document into an ordered sequence of
// raster pages: exactly one for image types, one per page for PDFs.
type Normalizer struct {
	rasterizer Rasterizer
}

// NewNormalizer creates a Normalizer backed by the given PDF rasterizer.
func NewNormalizer(r Rasterizer) *Normalizer {
	return &Normalizer{rasterizer: r}
}

// Normalize validates the input and produces its pages. The declared type is
// authoritative for the format branch; content mismatch surfaces as a decode
// or rasterization failure.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, fileType model.FileType) ([]model.Page, error) {
	switch {
	case fileType.IsImage():
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return nil, eris.Wrapf(ErrUnsupportedDocument, "decode %s image: %v", fileType, err)
		}
		return []model.Page{{Index: 0, Image: data}}, nil

	case fileType == model.FileTypePDF:
		return n.normalizePDF(ctx, data)

	default:
		return nil, eris.Wrapf(ErrUnsupportedFormat, "type %q", fileType)
	}
}

func (n *Normalizer) normalizePDF(ctx context.Context, data []byte) ([]model.Page, error) {
	cfg := pdfmodel.NewDefaultConfiguration()
	cfg.ValidationMode = pdfmodel.ValidationRelaxed

	pageCount, err := api.PageCount(bytes.NewReader(data), cfg)
	if err != nil {
		return nil, eris.Wrapf(ErrUnsupportedDocument, "read PDF: %v", err)
	}
	if pageCount == 0 {
		return nil, eris.Wrap(ErrUnsupportedDocument, "PDF has zero pages")
	}

	pages, err := n.rasterizer.Rasterize(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, eris.Wrapf(ErrUnsupportedDocument, "rasterize PDF: %v", err)
	}
	if len(pages) == 0 {
		return nil, eris.Wrap(ErrUnsupportedDocument, "rasterizer produced no pages")
	}
	if len(pages) != pageCount {
		zap.L().Warn("rasterized page count differs from PDF page count",
			zap.Int("pdf_pages", pageCount),
			zap.Int("rasterized", len(pages)),
		)
	}
	return pages, nil
}
