// Package server exposes the caption canonicalizer over HTTP.
//
// Routes:
//
//   - GET  /v1/captions: WebSocket; one connection is one caption stream.
//     The client sends segment objects and receives one caption object per
//     segment, in order.
//   - POST /v1/format: canonicalize one finalized segment given the
//     carried state; stateless for the server.
//   - POST /v1/render: render a whole batch of segments.
//   - GET  /metrics, /healthz, /readyz.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/health"
	"github.com/MrWong99/versecap/internal/observe"
	"github.com/MrWong99/versecap/internal/transcript"
)

// maxBodyBytes bounds POST request bodies.
const maxBodyBytes = 1 << 20

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithMetrics sets the metric instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithHealth serves h on /healthz and /readyz. Default: a handler without
// readiness checkers.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.health = h
		}
	}
}

// WithMetricsHandler replaces the /metrics handler. Default:
// [promhttp.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metricsHandler = h
		}
	}
}

// WithStreamOptions adds options applied to every WebSocket caption stream,
// typically [transcript.WithArchive].
func WithStreamOptions(opts ...transcript.StreamOption) Option {
	return func(s *Server) {
		s.streamOpts = append(s.streamOpts, opts...)
	}
}

// WithCanonicalizerSource makes the server ask src for the canonicalizer of
// every new request or stream, so reconfiguration reaches new streams while
// open ones keep theirs.
func WithCanonicalizerSource(src func() *caption.Canonicalizer) Option {
	return func(s *Server) {
		if src != nil {
			s.canonicalizer = src
		}
	}
}

// WithOriginPatterns sets the host patterns accepted for cross-origin
// WebSocket connections.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = patterns
	}
}

// Server serves the caption API.
type Server struct {
	canonicalizer  func() *caption.Canonicalizer
	metrics        *observe.Metrics
	health         *health.Handler
	metricsHandler http.Handler
	streamOpts     []transcript.StreamOption
	originPatterns []string
}

// New returns a server canonicalizing with c unless
// [WithCanonicalizerSource] is given.
func New(c *caption.Canonicalizer, opts ...Option) *Server {
	s := &Server{
		canonicalizer: func() *caption.Canonicalizer { return c },
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	return s
}

// Handler returns the route mux wrapped in [observe.Middleware].
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/captions", s.handleCaptions)
	mux.HandleFunc("POST /v1/format", s.handleFormat)
	mux.HandleFunc("POST /v1/render", s.handleRender)
	mux.Handle("GET /metrics", s.metricsHandler)
	s.health.Register(mux)
	return observe.Middleware(s.metrics)(mux)
}

type errorResponse struct {
	Error string `json:"error"`
}

// decodeJSON reads a size-limited JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("server: write response", "err", err)
	}
}

// writeError reports err as a JSON error body. Oversized bodies map to 413.
func writeError(w http.ResponseWriter, status int, err error) {
	if maxErr := (*http.MaxBytesError)(nil); errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
