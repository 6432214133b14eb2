// Package server exposes the scoring engine over a local JSON API:
// one-shot pair analysis, asynchronous benchmark sessions fanned across
// model providers, topology payloads for visualization, and the model
// catalog. The API is the whole surface; rendering is a client concern.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/cleaner"
	"github.com/perihelion-labs/ldsi/core/config"
	"github.com/perihelion-labs/ldsi/core/probe"
	"github.com/perihelion-labs/ldsi/core/scoring"
)

// Server is the LDSI control center.
type Server struct {
	cfg        config.ServerConfig
	scoringCfg config.ScoringConfig
	probeCfg   config.ProbeConfig

	engine  *scoring.Engine
	cleaner *cleaner.Memoized

	registry *probe.Registry
	catalog  probe.Catalog
	store    *audit.Store
	auditLog *audit.Log

	sessions *sessionStore
	logger   *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry supplies the provider registry benchmarks run against.
// Without one, benchmark requests are rejected and analyze still works.
func WithRegistry(r *probe.Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithAudit attaches the result store and the append-only run log.
// Completed benchmark runs are persisted to both.
func WithAudit(store *audit.Store, log *audit.Log) Option {
	return func(s *Server) {
		s.store = store
		s.auditLog = log
	}
}

// WithCatalog overrides the model catalog served on /api/v1/models.
func WithCatalog(c probe.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithLogger overrides the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// cleanMemoSize bounds the memo of cleaned token sequences shared by the
// scoring engine and the topology view.
const cleanMemoSize = 512

// New builds a Server from the loaded configuration.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	srv := &Server{
		cfg:        cfg.Server,
		scoringCfg: cfg.Scoring,
		probeCfg:   cfg.Probe,
		catalog:    probe.DefaultCatalog(),
		sessions:   newSessionStore(),
		logger:     slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(srv)
	}

	cl, err := cleaner.New(cfg.Cleaner)
	if err != nil {
		return nil, err
	}
	memo, err := cleaner.NewMemoized(cl, cleanMemoSize)
	if err != nil {
		return nil, err
	}
	srv.cleaner = memo

	engineOpts := []scoring.Option{
		scoring.WithCoefficients(cfg.Scoring.Coefficients),
		scoring.WithThresholds(cfg.Scoring.Thresholds),
		scoring.WithCleaner(memo),
	}
	if cfg.Scoring.CacheEntries > 0 {
		cache, err := scoring.NewCache(cfg.Scoring.CacheEntries)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, scoring.WithCache(cache))
	}
	engine, err := scoring.NewEngine(engineOpts...)
	if err != nil {
		return nil, err
	}
	srv.engine = engine

	srv.baseCtx, srv.cancel = context.WithCancel(context.Background())
	return srv, nil
}

// Handler assembles the route table and middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/v1/benchmark", s.handleBenchmarkStart)
	mux.HandleFunc("GET /api/v1/benchmark/{id}", s.handleBenchmarkStatus)
	// Model IDs carry slashes (anthropic/claude-opus-4.5), so the last
	// segment is a trailing wildcard.
	mux.HandleFunc("GET /api/v1/benchmark/{id}/topology/{model...}", s.handleTopology)
	mux.HandleFunc("GET /api/v1/models", s.handleModels)
	mux.HandleFunc("GET /health/live", s.handleLive)
	mux.HandleFunc("GET /health/ready", s.handleReady)

	var chain http.Handler = mux
	if s.cfg.MaxBodyBytes > 0 {
		chain = http.MaxBytesHandler(chain, s.cfg.MaxBodyBytes)
	}
	if s.cfg.RequestTimeout > 0 {
		chain = Timeout(s.cfg.RequestTimeout, s.logger)(chain)
	}
	chain = Logging(s.logger)(chain)
	chain = RequestID(chain)
	return chain
}

// Start serves until ctx is canceled, then shuts down gracefully and
// waits for in-flight benchmarks to unwind.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown error", "error", err)
		}
	}()

	s.logger.Info("control center listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.cancel()
		return err
	}

	s.Close()
	s.logger.Info("control center stopped")
	return nil
}

// Close cancels in-flight benchmarks and waits them out.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

const (
	healthUp       = "up"
	healthDown     = "down"
	healthDegraded = "degraded"
)

type componentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type healthReport struct {
	Status     string                     `json:"status"`
	Components map[string]componentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady reports per-component readiness. Degraded components
// (audit off, no providers) leave the server ready; analyze needs
// neither.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := healthReport{
		Status:     healthUp,
		Components: make(map[string]componentHealth),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	report.Components["audit_store"] = s.checkAuditStore(ctx)
	report.Components["providers"] = s.checkProviders()

	for _, comp := range report.Components {
		switch comp.Status {
		case healthDown:
			report.Status = healthDown
		case healthDegraded:
			if report.Status == healthUp {
				report.Status = healthDegraded
			}
		}
	}

	status := http.StatusOK
	if report.Status == healthDown {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, report)
}

func (s *Server) checkAuditStore(ctx context.Context) componentHealth {
	if s.store == nil {
		return componentHealth{Status: healthDegraded, Message: "not configured"}
	}
	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		return componentHealth{Status: healthDown, Message: err.Error()}
	}
	return componentHealth{
		Status:  healthUp,
		Latency: time.Since(start).Round(time.Millisecond).String(),
	}
}

func (s *Server) checkProviders() componentHealth {
	if s.registry == nil {
		return componentHealth{Status: healthDegraded, Message: "not configured"}
	}
	available := s.registry.Available()
	if len(available) == 0 {
		return componentHealth{Status: healthDegraded, Message: "none registered"}
	}
	return componentHealth{
		Status:  healthUp,
		Message: fmt.Sprintf("%d registered", len(available)),
	}
}
