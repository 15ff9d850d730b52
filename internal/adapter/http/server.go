package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
)

const loopTimeout = 5 * time.Second

// Globe runs work on the globe loop.
type Globe interface {
	Do(ctx context.Context, fn func(*globe.App)) error
}

// Server exposes health, readiness, metrics and the globe's overlay, frame
// and state over HTTP.
type Server struct {
	httpServer *http.Server
	globe      Globe
	logger     *slog.Logger
}

// NewServer creates an HTTP server. events serves the websocket stream at
// /ws and may be nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, g Globe, events http.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		globe:  g,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /overlay.png", s.handleOverlay)
	mux.HandleFunc("GET /frame.png", s.handleFrame)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /metric", s.handleGetMetric)
	mux.HandleFunc("POST /metric", s.handleSetMetric)
	if events != nil {
		mux.Handle("GET /ws", events)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) do(r *http.Request, fn func(*globe.App)) error {
	ctx, cancel := context.WithTimeout(r.Context(), loopTimeout)
	defer cancel()
	return s.globe.Do(ctx, fn)
}

// handleOverlay serves the current heat texture. Textures are replaced, not
// mutated, so encoding happens off the loop.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var tex *heatmap.Texture
	if err := s.do(r, func(a *globe.App) { tex = a.Texture() }); err != nil {
		s.loopError(w, err)
		return
	}
	if tex == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no overlay built yet"})
		return
	}
	var buf bytes.Buffer
	if err := tex.EncodePNG(&buf); err != nil {
		s.logger.Error("encode overlay", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode overlay"})
		return
	}
	writePNG(w, buf.Bytes())
}

// handleFrame renders a fresh frame of the globe.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	var frame *image.RGBA
	if err := s.do(r, func(a *globe.App) { frame = a.RenderFrame() }); err != nil {
		s.loopError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		s.logger.Error("encode frame", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "encode frame"})
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var st globe.State
	if err := s.do(r, func(a *globe.App) { st = a.Snapshot() }); err != nil {
		s.loopError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetMetric(w http.ResponseWriter, r *http.Request) {
	var kind domain.MetricKind
	if err := s.do(r, func(a *globe.App) { kind = a.ActiveMetric() }); err != nil {
		s.loopError(w, err)
		return
	}
	writeMetric(w, kind)
}

func (s *Server) handleSetMetric(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseMetricKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.do(r, func(a *globe.App) { a.SetActiveMetric(kind) }); err != nil {
		s.loopError(w, err)
		return
	}
	writeMetric(w, kind)
}

func (s *Server) loopError(w http.ResponseWriter, err error) {
	s.logger.Warn("globe loop unavailable", "error", err)
	status := http.StatusServiceUnavailable
	if errors.Is(err, context.Canceled) {
		status = http.StatusRequestTimeout
	}
	writeJSON(w, status, map[string]string{"error": "globe loop unavailable"})
}

func writeMetric(w http.ResponseWriter, kind domain.MetricKind) {
	writeJSON(w, http.StatusOK, map[string]string{
		"kind":  kind.String(),
		"label": kind.Label(),
	})
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client went away
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
