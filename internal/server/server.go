package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/maxvaer/cmsid/internal/config"
	"github.com/maxvaer/cmsid/internal/logging"
	"github.com/maxvaer/cmsid/internal/output"
	"github.com/maxvaer/cmsid/internal/scanner"
	"github.com/maxvaer/cmsid/internal/signature"
	"github.com/maxvaer/cmsid/internal/targets"
)

// MaxURLs bounds the number of targets in one scan request.
const MaxURLs = 1000

// Config configures the HTTP API.
type Config struct {
	ListenAddr string
	Options    *config.Options // probe timeout, workers, headers
	Rules      signature.Table
	Logger     logrus.FieldLogger
}

// Server exposes the scan engine over HTTP.
type Server struct {
	cfg    Config
	prober *scanner.Prober
	router chi.Router
	log    logrus.FieldLogger
}

// NewServer creates a Server. The signature table is fixed for its lifetime.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("signature table: %w", err)
	}
	if cfg.Options == nil {
		cfg.Options = &config.Options{Timeout: config.DefaultTimeout}
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Server{
		cfg:    cfg,
		prober: scanner.NewProber(cfg.Options),
		router: chi.NewRouter(),
		log:    log,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/signatures", s.handleSignatures)
	r.Post("/scan", s.handleScan)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        s.cfg.ListenAddr,
		Handler:     s,
		ReadTimeout: 15 * time.Second,
		// Scans can run for a while; no write timeout.
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("http_request")
	})
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Rules)
}

type scanRequest struct {
	URLs    []string `json:"urls"`
	SpoofUA bool     `json:"spoof_ua"`
	CMS     []string `json:"cms,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body scanRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}
	if len(body.URLs) > MaxURLs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d urls per request", MaxURLs))
		return
	}

	tgts, err := targets.NormalizeAll(body.URLs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rules := s.cfg.Rules.Filter(body.CMS)
	if len(rules) == 0 {
		writeError(w, http.StatusBadRequest, "no signature rules match the requested cms names")
		return
	}

	opts := *s.cfg.Options
	opts.SpoofUA = opts.SpoofUA || body.SpoofUA
	engine := scanner.NewEngine(s.prober, scanner.EngineConfig{
		Workers:          opts.Threads,
		Delay:            opts.Delay,
		AdaptiveThrottle: opts.AdaptiveThrottle,
		Logger:           s.log,
	})

	report := output.NewReport()
	start := time.Now()
	report.Results = engine.ScanAll(r.Context(), tgts, rules, opts.ProbeHeaders())
	if err := r.Context().Err(); err != nil {
		s.log.WithError(err).Debug("scan request cancelled")
		return
	}

	stats := output.Collect(report.Results, time.Since(start))
	report.Summary = stats.Summary()
	writeJSON(w, http.StatusOK, report)
}
