package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/intelliscan/intelliscan/internal/ocr"
	"github.com/intelliscan/intelliscan/internal/pipeline"
	"github.com/intelliscan/intelliscan/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document upload and history server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		router := newRouter(env)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandler{env: env, maxBytes: cfg.Process.MaxFileSizeBytes}
	limiter := rate.NewLimiter(rate.Limit(cfg.Server.UploadRatePerSec), cfg.Server.UploadBurst)

	r.Get("/health", h.health)
	r.Route("/api/documents", func(r chi.Router) {
		r.With(rateLimit(limiter)).Post("/", h.upload)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
		r.Get("/{id}/export", h.export)
	})
	return r
}

// rateLimit rejects uploads beyond the configured rate with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type apiHandler struct {
	env      *pipelineEnv
	maxBytes int64
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}

	version, err := h.env.Engine.Version(r.Context())
	if err != nil {
		resp["status"] = "degraded"
		resp["engine_error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp["engine_version"] = version
	writeJSON(w, http.StatusOK, resp)
}

func (h *apiHandler) upload(w http.ResponseWriter, r *http.Request) {
	// MaxBytesReader caps the whole request body; the pipeline enforces the
	// same limit on the decoded file for non-HTTP callers.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1024*1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	rec, err := h.env.Pipeline.Process(r.Context(), data, header.Filename)
	if err != nil {
		status, msg := statusForError(err)
		zap.L().Warn("upload rejected",
			zap.String("filename", header.Filename),
			zap.Int("status", status),
			zap.Error(err),
		)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *apiHandler) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.env.Store.List(r.Context())
	if err != nil {
		zap.L().Error("list records", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list records")
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *apiHandler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.env.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *apiHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.env.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) export(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, err := h.env.Store.Export(r.Context(), id)
	if err != nil {
		status, msg := statusForError(err)
		writeError(w, status, msg)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "record_"+id+".json"))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// statusForError maps pipeline and store failure modes to HTTP statuses.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported file format"
	case errors.Is(err, pipeline.ErrUnsupportedDocument):
		return http.StatusUnprocessableEntity, "document could not be decoded"
	case errors.Is(err, pipeline.ErrEmptyDocument):
		return http.StatusUnprocessableEntity, "document contains no pages"
	case errors.Is(err, pipeline.ErrTimedOut):
		return http.StatusGatewayTimeout, "processing timed out"
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return http.StatusServiceUnavailable, "recognition engine unavailable"
	case errors.Is(err, ocr.ErrEngineError):
		return http.StatusInternalServerError, "recognition failed"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "record not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
