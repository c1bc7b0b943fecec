// Package server exposes painting and repository operations over HTTP.
//
// Every request carries an already-issued GitHub access token as a bearer
// token. The server resolves it into an explicit identity per request and
// holds no session state.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/justapithecus/contribuart/adapter"
	"github.com/justapithecus/contribuart/chain"
	"github.com/justapithecus/contribuart/github"
	"github.com/justapithecus/contribuart/lode"
	"github.com/justapithecus/contribuart/log"
	"github.com/justapithecus/contribuart/metrics"
	"github.com/justapithecus/contribuart/retry"
	"github.com/justapithecus/contribuart/types"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// GitHubAPI is the per-token GitHub surface the server uses.
// *github.Client implements it.
type GitHubAPI interface {
	chain.Remote
	Identity(ctx context.Context) (types.Identity, error)
	ListRepos(ctx context.Context) ([]github.Repository, error)
	CreateRepo(ctx context.Context, name string, private bool) (github.Repository, error)
}

// CalendarAPI reads contribution calendars. *github.Calendar implements it.
type CalendarAPI interface {
	Fetch(ctx context.Context, login string, year int) (*types.ContributionCalendar, error)
}

// Config configures a Server.
type Config struct {
	// Addr is the listen address (default DefaultAddr).
	Addr string
	// AllowedOrigins are the browser origins allowed for CORS and WebSocket
	// upgrades. Requests without an Origin header are always allowed.
	AllowedOrigins []string

	// NewClient builds a GitHub client for a token.
	NewClient func(token string) GitHubAPI
	// NewCalendar builds a calendar reader for a token.
	NewCalendar func(ctx context.Context, token string) CalendarAPI

	// Branches are the ref candidates for paints (default heads/main,
	// heads/master).
	Branches    []string
	ForceUpdate bool
	Retry       retry.Config

	Journal   lode.Writer
	Notifier  adapter.Adapter
	Collector *metrics.Collector
	Logger    *log.Logger
	// Clock overrides time.Now.
	Clock func() time.Time
}

// Server is the HTTP API server.
type Server struct {
	cfg        Config
	logger     *log.Logger
	now        func() time.Time
	httpServer *http.Server
}

// New creates a server. NewClient and NewCalendar default to the real
// GitHub API.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.NewClient == nil {
		cfg.NewClient = func(token string) GitHubAPI { return github.New(token) }
	}
	if cfg.NewCalendar == nil {
		cfg.NewCalendar = func(ctx context.Context, token string) CalendarAPI {
			return github.NewCalendar(ctx, token, "")
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewServiceLogger("server")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	s := &Server{cfg: cfg, logger: logger, now: now}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/paint", s.handlePaint)
	mux.HandleFunc("GET /ws/paint", s.handlePaintWS)
	mux.HandleFunc("GET /api/repos", s.handleListRepos)
	mux.HandleFunc("POST /api/repos", s.handleCreateRepo)
	mux.HandleFunc("GET /api/contributions", s.handleContributions)
	mux.HandleFunc("GET /api/healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	return s.withLogging(s.withCORS(mux))
}

// Run serves until ctx is done, then shuts down gracefully. In-flight
// paints see their request context cancelled and stop at the next commit.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", map[string]any{"addr": s.cfg.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) originAllowed(origin string) bool {
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, origin)
}

// withCORS rejects foreign browser origins and answers preflight requests.
func (s *Server) withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if !s.originAllowed(origin) {
			writeError(w, http.StatusForbidden, "origin not allowed")
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logs. It keeps
// Flush and Hijack reachable for streaming and WebSocket handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w}
		h.ServeHTTP(rec, r)
		s.logger.Debug("request", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": s.now().Sub(start).String(),
		})
	})
}
