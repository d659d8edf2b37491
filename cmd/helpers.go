package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/intelliscan/intelliscan/internal/ocr"
	"github.com/intelliscan/intelliscan/internal/pipeline"
	"github.com/intelliscan/intelliscan/internal/store"
)

// pipelineEnv bundles the wired components a command needs.
type pipelineEnv struct {
	Store    store.Store
	Engine   ocr.Engine
	Pipeline *pipeline.Pipeline
}

func (e *pipelineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured history store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// initPipeline wires the store, engine, rasterizer, and orchestrator.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	engine, err := ocr.NewEngine(cfg.OCR)
	if err != nil {
		st.Close()
		return nil, err
	}

	rasterizer := pipeline.NewPdfToPpm(cfg.PDF.PdfToPpmPath, cfg.PDF.DPI)
	normalizer := pipeline.NewNormalizer(rasterizer)

	return &pipelineEnv{
		Store:    st,
		Engine:   engine,
		Pipeline: pipeline.New(cfg.Process, normalizer, engine, st),
	}, nil
}
