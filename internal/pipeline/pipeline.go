// Package pipeline implements the document processing pipeline: input
// validation, format normalization, per-page text recognition, confidence
// aggregation, entity extraction, and history record creation.
package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/intelliscan/intelliscan/internal/config"
	"github.com/intelliscan/intelliscan/internal/model"
	"github.com/intelliscan/intelliscan/internal/ocr"
	"github.com/intelliscan/intelliscan/internal/resilience"
	"github.com/intelliscan/intelliscan/internal/store"
)

// Pipeline orchestrates the end-to-end processing of one uploaded document.
// Runs are independent and may execute concurrently; the store is the only
// shared mutable state.
type Pipeline struct {
	cfg        config.ProcessConfig
	normalizer *Normalizer
	engine     ocr.Engine
	store      store.Store
	retry      resilience.RetryConfig
}

// New creates a Pipeline with all dependencies.
func New(cfg config.ProcessConfig, n *Normalizer, engine ocr.Engine, st store.Store) *Pipeline {
	retry := resilience.NoRetry()
	if cfg.EngineRetries > 0 {
		retry.MaxAttempts = cfg.EngineRetries + 1
	}
	return &Pipeline{
		cfg:        cfg,
		normalizer: n,
		engine:     engine,
		store:      st,
		retry:      retry,
	}
}

// Process validates the upload, runs the pipeline stages in order, and
// persists the result. Any failure before persistence aborts the run with no
// record created.
func (p *Pipeline) Process(ctx context.Context, data []byte, filename string) (*model.Record, error) {
	log := zap.L().With(zap.String("filename", filename))
	start := time.Now()

	if p.cfg.TimeoutSecs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.cfg.TimeoutSecs)*time.Second)
		defer cancel()
	}

	// Validation happens before any expensive work.
	if p.cfg.MaxFileSizeBytes > 0 && int64(len(data)) > p.cfg.MaxFileSizeBytes {
		return nil, eris.Wrapf(ErrFileTooLarge, "%d bytes exceeds limit %d", len(data), p.cfg.MaxFileSizeBytes)
	}

	fileType, ok := model.FileTypeFromFilename(filename)
	if !ok {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "filename %q", filename)
	}
	if !p.cfg.AcceptsFormat(string(fileType)) {
		return nil, eris.Wrapf(ErrUnsupportedFormat, "type %q not accepted", fileType)
	}
	if err := sniffCheck(data, fileType); err != nil {
		return nil, err
	}

	pages, err := p.normalizer.Normalize(ctx, data, fileType)
	if err != nil {
		return nil, p.mapTimeout(ctx, err)
	}
	log.Debug("pipeline: normalized input", zap.Int("pages", len(pages)))

	results, err := p.recognizePages(ctx, pages)
	if err != nil {
		return nil, p.mapTimeout(ctx, err)
	}

	doc, err := Aggregate(results)
	if err != nil {
		return nil, err
	}

	entities := Extract(doc.Text)

	rec, err := p.store.Create(ctx, doc, entities, filename, fileType)
	if err != nil {
		return nil, p.mapTimeout(ctx, eris.Wrap(err, "pipeline: create record"))
	}

	log.Info("pipeline: document processed",
		zap.String("record_id", rec.ID),
		zap.Int("pages", doc.PageCount),
		zap.Int("words", doc.WordCount),
		zap.Float64("confidence", doc.Confidence),
		zap.Int("entities", entities.Total()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

// recognizePages runs the engine over all pages, in parallel up to the
// configured worker limit. Results land in page-index slots, so aggregation
// order does not depend on completion order. Any engine failure aborts the
// whole run; partial text is never accepted as success.
func (p *Pipeline) recognizePages(ctx context.Context, pages []model.Page) ([]model.PageResult, error) {
	workers := p.cfg.PageWorkers
	if workers <= 0 {
		workers = 1
	}

	results := make([]model.PageResult, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, page := range pages {
		g.Go(func() error {
			res, err := resilience.DoVal(gctx, p.retry, func(ctx context.Context) (model.PageResult, error) {
				return p.engine.Recognize(ctx, page)
			})
			if err != nil {
				return eris.Wrapf(err, "pipeline: recognize page %d", page.Index)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// mapTimeout converts context deadline expiry into the TimedOut failure mode.
func (p *Pipeline) mapTimeout(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrapf(ErrTimedOut, "after %ds", p.cfg.TimeoutSecs)
	}
	return err
}

// sniffCheck guards against extension/content mismatch: when content sniffing
// yields a definite type, it must agree with the declared one. Unrecognized
// content falls through to decode-time validation.
func sniffCheck(data []byte, fileType model.FileType) error {
	detected := http.DetectContentType(data)

	expected := map[model.FileType]string{
		model.FileTypePNG:  "image/png",
		model.FileTypeJPEG: "image/jpeg",
		model.FileTypePDF:  "application/pdf",
		model.FileTypeBMP:  "image/bmp",
		model.FileTypeTIFF: "image/tiff",
	}[fileType]

	if detected == "application/octet-stream" || detected == "text/plain; charset=utf-8" {
		return nil
	}
	if detected != expected {
		return eris.Wrapf(ErrUnsupportedFormat, "declared %s but content is %s", fileType, detected)
	}
	return nil
}
