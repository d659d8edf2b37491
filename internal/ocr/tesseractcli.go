package ocr

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/model"
)

// TesseractCLI recognizes text by executing the tesseract binary. Useful where
// the cgo binding is unavailable; behavior matches Gosseract's contract.
type TesseractCLI struct {
	binPath   string
	languages []string
}

// NewTesseractCLI creates a CLI-backed engine. If binPath is empty,
// "tesseract" is used.
func NewTesseractCLI(binPath string, languages []string) *TesseractCLI {
	if binPath == "" {
		binPath = "tesseract"
	}
	return &TesseractCLI{binPath: binPath, languages: languages}
}

// Recognize writes the page image to a temp file and invokes tesseract twice:
// once for plain text, once for TSV output to compute word-level confidence.
func (t *TesseractCLI) Recognize(ctx context.Context, page model.Page) (model.PageResult, error) {
	tmp, err := os.CreateTemp("", "intelliscan-page-*.png")
	if err != nil {
		return model.PageResult{}, eris.Wrap(err, "ocr: create temp image")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(page.Image); err != nil {
		tmp.Close()
		return model.PageResult{}, eris.Wrap(err, "ocr: write temp image")
	}
	if err := tmp.Close(); err != nil {
		return model.PageResult{}, eris.Wrap(err, "ocr: close temp image")
	}

	text, err := t.run(ctx, tmp.Name(), "txt")
	if err != nil {
		return model.PageResult{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.PageResult{PageIndex: page.Index, Text: "", Confidence: 0}, nil
	}

	tsv, err := t.run(ctx, tmp.Name(), "tsv")
	if err != nil {
		return model.PageResult{}, err
	}

	return model.PageResult{
		PageIndex:  page.Index,
		Text:       text,
		Confidence: clampConfidence(parseTSVConfidence(tsv)),
	}, nil
}

// Version reports the tesseract binary version.
func (t *TesseractCLI) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, t.binPath, "--version")
	out, err := cmd.Output()
	if err != nil {
		return "", eris.Wrapf(ErrEngineUnavailable, "%s --version: %v", t.binPath, err)
	}
	// First line looks like "tesseract 5.3.0".
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(strings.TrimPrefix(line, "tesseract")), nil
}

func (t *TesseractCLI) run(ctx context.Context, imagePath, format string) (string, error) {
	args := []string{imagePath, "stdout"}
	if len(t.languages) > 0 {
		args = append(args, "-l", strings.Join(t.languages, "+"))
	}
	if format == "tsv" {
		args = append(args, "tsv")
	}

	cmd := exec.CommandContext(ctx, t.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", eris.Wrapf(ErrEngineUnavailable, "%s not found", t.binPath)
		}
		return "", eris.Wrapf(ErrEngineError, "%s %s: %v: %s",
			filepath.Base(t.binPath), format, err, stderr.String())
	}
	return stdout.String(), nil
}

// parseTSVConfidence averages the conf column of tesseract TSV output over
// word rows (level 5), skipping the non-positive entries the engine emits for
// structural rows.
func parseTSVConfidence(tsv string) float64 {
	var sum float64
	var n int
	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 || line == "" { // header
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf <= 0 {
			continue
		}
		sum += conf
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
