package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intelliscan/intelliscan/internal/model"
)

// stubRasterizer returns canned pages or a canned error.
type stubRasterizer struct {
	pages []model.Page
	err   error
	calls int
}

func (s *stubRasterizer) Rasterize(ctx context.Context, pdf []byte) ([]model.Page, error) {
	s.calls++
	return s.pages, s.err
}

// pngBytes encodes a small white image for decode-path tests.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// jpegBytes encodes the same small image as JPEG.
func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNormalizeImageSinglePage(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})
	data := pngBytes(t)

	pages, err := n.Normalize(context.Background(), data, model.FileTypePNG)
	require.NoError(t, err)

	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Index)
	assert.Equal(t, data, pages[0].Image)
}

func TestNormalizeCorruptImage(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})

	_, err := n.Normalize(context.Background(), []byte("definitely not an image"), model.FileTypePNG)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestNormalizeTruncatedImage(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})
	data := pngBytes(t)

	// DecodeConfig only needs the header, so cut into the signature itself.
	_, err := n.Normalize(context.Background(), data[:4], model.FileTypePNG)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestNormalizeUnknownType(t *testing.T) {
	n := NewNormalizer(&stubRasterizer{})

	_, err := n.Normalize(context.Background(), []byte("x"), model.FileType("docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestNormalizeCorruptPDF(t *testing.T) {
	rast := &stubRasterizer{}
	n := NewNormalizer(rast)

	_, err := n.Normalize(context.Background(), []byte("%PDF-this is garbage"), model.FileTypePDF)
	assert.ErrorIs(t, err, ErrUnsupportedDocument)
	// Page counting failed, so the rasterizer is never invoked.
	assert.Equal(t, 0, rast.calls)
}

func TestNormalizeImageNeverCallsRasterizer(t *testing.T) {
	rast := &stubRasterizer{}
	n := NewNormalizer(rast)

	_, err := n.Normalize(context.Background(), pngBytes(t), model.FileTypePNG)
	require.NoError(t, err)
	assert.Equal(t, 0, rast.calls)
}
