// Package server exposes the arrangement pipeline over HTTP.
//
// Endpoints:
//
//	POST /api/arrange          run the pipeline on a posted snapshot
//	GET  /api/layouts/{hash}   fetch a stored layout by snapshot hash
//	GET  /api/layouts          list recently stored layouts
//	GET  /healthz              liveness probe
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/patchgrid/patchgrid/pkg/layout"
	"github.com/patchgrid/patchgrid/pkg/patch"
	"github.com/patchgrid/patchgrid/pkg/pipeline"
	"github.com/patchgrid/patchgrid/pkg/store"
)

// maxSnapshotBytes bounds the request body for arrange requests.
const maxSnapshotBytes = 8 << 20

// Server wires the pipeline runner, optional layout store, and router.
type Server struct {
	runner *pipeline.Runner
	store  *store.LayoutStore
	logger *log.Logger
	router chi.Router
}

// New creates a server. The store may be nil, in which case the layout
// endpoints respond 404.
func New(runner *pipeline.Runner, st *store.LayoutStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner: runner,
		store:  st,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler for mounting or serving.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/arrange", s.handleArrange)
		r.Get("/layouts", s.handleListLayouts)
		r.Get("/layouts/{hash}", s.handleGetLayout)
	})
	return r
}

// requestLogger logs each request with its duration and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// arrangeRequest is the POST /api/arrange payload.
type arrangeRequest struct {
	Snapshot patch.Document   `json:"snapshot"`
	Options  pipeline.Options `json:"options"`
}

// arrangeResponse is the POST /api/arrange reply. Artifacts are limited
// to text formats; binary formats must be fetched via the CLI.
type arrangeResponse struct {
	RunID        string            `json:"run_id"`
	SnapshotHash string            `json:"snapshot_hash"`
	Layout       layout.Layout     `json:"layout"`
	Artifacts    map[string]string `json:"artifacts,omitempty"`
	Cached       bool              `json:"cached"`
}

func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBytes)

	var req arrangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	snap, err := patch.ToSnapshot(req.Snapshot)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot: "+err.Error())
		return
	}

	// PNG output is binary and large; the API serves text formats only.
	for _, f := range req.Options.Formats {
		if f == pipeline.FormatPNG {
			writeError(w, http.StatusBadRequest, "png output is not available over the API")
			return
		}
	}

	res, err := s.runner.Execute(r.Context(), snap, req.Options)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.Save(r.Context(), res.Layout); err != nil {
			s.logger.Warn("failed to persist layout", "err", err)
		}
	}

	resp := arrangeResponse{
		RunID:        res.RunID,
		SnapshotHash: res.SnapshotHash,
		Layout:       res.Layout,
		Cached:       res.CacheInfo.LayoutHit,
	}
	if len(res.Artifacts) > 0 {
		resp.Artifacts = make(map[string]string, len(res.Artifacts))
		for format, data := range res.Artifacts {
			resp.Artifacts[format] = string(data)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "layout store not configured")
		return
	}

	hash := chi.URLParam(r, "hash")
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = layout.ModeColumns
	}

	l, err := s.store.Get(r.Context(), hash, mode)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no layout for snapshot "+hash)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "layout store not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
