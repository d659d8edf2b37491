package pipeline

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/model"
)

// PdfToPpm rasterizes PDFs using poppler's pdftoppm CLI tool.
type PdfToPpm struct {
	binPath string
	dpi     int
}

// NewPdfToPpm creates a PdfToPpm rasterizer. Empty binPath defaults to
// "pdftoppm", non-positive dpi to 200.
func NewPdfToPpm(binPath string, dpi int) *PdfToPpm {
	if binPath == "" {
		binPath = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &PdfToPpm{binPath: binPath, dpi: dpi}
}

var pageNumberRe = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize writes the PDF to a temp directory, runs pdftoppm -png, and reads
// back the page images ordered by page number.
func (p *PdfToPpm) Rasterize(ctx context.Context, pdf []byte) ([]model.Page, error) {
	dir, err := os.MkdirTemp("", "intelliscan-raster-*")
	if err != nil {
		return nil, eris.Wrap(err, "rasterize: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	srcPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(srcPath, pdf, 0o600); err != nil {
		return nil, eris.Wrap(err, "rasterize: write temp PDF")
	}

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, p.binPath, "-r", strconv.Itoa(p.dpi), "-png", srcPath, prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "rasterize: %s failed: %s", p.binPath, stderr.String())
	}

	paths, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, eris.Wrap(err, "rasterize: glob pages")
	}

	// pdftoppm zero-pads page numbers to the document's digit width; sort
	// numerically rather than lexically to stay order-correct either way.
	type numbered struct {
		num  int
		path string
	}
	ordered := make([]numbered, 0, len(paths))
	for _, path := range paths {
		m := pageNumberRe.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ordered = append(ordered, numbered{num: num, path: path})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].num < ordered[j].num })

	pages := make([]model.Page, 0, len(ordered))
	for i, entry := range ordered {
		img, err := os.ReadFile(entry.path)
		if err != nil {
			return nil, eris.Wrapf(err, "rasterize: read page %d", entry.num)
		}
		pages = append(pages, model.Page{Index: i, Image: img})
	}
	return pages, nil
}
