// Package server exposes the registry over HTTP.
//
// Routes:
//
//	POST /v1/papers                          register a paper (signed)
//	POST /v1/sections                        register a section (signed)
//	GET  /v1/papers/{author}/{paperHash}     read a paper record
//	GET  /v1/verify?author=&section_type=&content_hash=
//	GET  /v1/lookup?author=&section_type=&content_hash=
//	GET  /healthz
//	GET  /metrics
//
// Writes are authenticated by an IdentityProvider; the authenticated
// identity is passed to the registry as the caller. Reads are public.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/secfit/ip-protector/internal/config"
	"github.com/secfit/ip-protector/internal/fingerprint"
	"github.com/secfit/ip-protector/internal/metrics"
	"github.com/secfit/ip-protector/internal/record"
	"github.com/secfit/ip-protector/internal/registry"
)

// maxBodyBytes bounds request bodies. The largest valid request (a section
// with a 500 byte summary) is well under this.
const maxBodyBytes = 64 << 10

// Registry is the subset of registry.Service the server calls.
type Registry interface {
	RegisterPaper(ctx context.Context, caller fingerprint.Identity, req registry.PaperRequest) (record.Paper, error)
	RegisterSection(ctx context.Context, caller fingerprint.Identity, req registry.SectionRequest) (record.Section, error)
	Lookup(ctx context.Context, q registry.SectionQuery) (registry.Verification, error)
	GetPaper(ctx context.Context, author fingerprint.Identity, paperHash string) (record.Paper, error)
}

// Options configure a Server. Zero values are usable.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Identity IdentityProvider

	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer

	// Health is probed by /healthz. Nil reports healthy.
	Health func(ctx context.Context) error
}

// Server routes HTTP requests to a Registry.
type Server struct {
	registry Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	identity IdentityProvider
	gatherer prometheus.Gatherer
	health   func(ctx context.Context) error
}

// New creates a Server. Identity defaults to SignatureIdentity.
func New(reg Registry, opts Options) *Server {
	s := &Server{
		registry: reg,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		identity: opts.Identity,
		gatherer: opts.Gatherer,
		health:   opts.Health,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.identity == nil {
		s.identity = SignatureIdentity{}
	}
	return s
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(s.logger, s.metrics))
	r.Use(Recovery(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/papers", s.handleRegisterPaper)
		r.Post("/sections", s.handleRegisterSection)
		r.Get("/papers/{author}/{paperHash}", s.handleGetPaper)
		r.Get("/verify", s.handleVerify)
		r.Get("/lookup", s.handleLookup)
	})
	return r
}

// NewHTTPServer builds an http.Server for handler with the configured
// address and timeouts.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	timeout := cfg.ReadHeaderTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: timeout,
	}
}
