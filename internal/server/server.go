// Package server provides the HTTP REST API for the careers portal drafts engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/careers-portal/internal/drafts"
	"github.com/jonathan/careers-portal/internal/logging"
	"github.com/jonathan/careers-portal/internal/reconcile"
	"github.com/jonathan/careers-portal/internal/server/middleware"
	"github.com/jonathan/careers-portal/internal/server/ratelimit"
	"github.com/jonathan/careers-portal/internal/types"
	"github.com/jonathan/careers-portal/internal/validation"
)

// Repositories are the upstream collections the sessions save to.
type Repositories struct {
	Education  reconcile.Repository[types.EducationRecord]
	Experience reconcile.Repository[types.ExperienceEntry]
	Dependents reconcile.Repository[types.DependentEntry]
	References reconcile.Repository[types.ReferenceEntry]
}

func (r Repositories) validate() error {
	if r.Education == nil || r.Experience == nil || r.Dependents == nil || r.References == nil {
		return fmt.Errorf("every repository is required")
	}
	return nil
}

// Profiles reads the personal information saved upstream.
type Profiles interface {
	Profile(ctx context.Context, applicantID string) (*types.Profile, error)
	Details(ctx context.Context, applicantID string) (*types.ProfileDetails, error)
}

// SubmissionRecorder keeps a copy of every submitted application.
type SubmissionRecorder interface {
	RecordSubmission(ctx context.Context, applicantID string, content any) (uuid.UUID, error)
}

// Config holds server configuration.
type Config struct {
	Port          int
	Backend       drafts.Backend
	Repositories  Repositories
	Profiles      Profiles
	JWT           *JWTService
	RateLimit     *ratelimit.Config
	Validator     *validation.Validator
	MaxExperience int
	Concurrency   int
	// IdleTimeout unloads an applicant's sessions after this long without
	// requests. Zero keeps them loaded.
	IdleTimeout time.Duration
	// Submissions is optional.
	Submissions SubmissionRecorder
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// Server represents the HTTP server.
type Server struct {
	cfg         Config
	httpServer  *http.Server
	handler     http.Handler
	rateLimiter *ratelimit.Limiter
	logger      zerolog.Logger

	loads      singleflight.Group
	mu         sync.Mutex
	workspaces map[string]*workspace
	lastSweep  time.Time
}

// New creates a server instance.
func New(cfg Config) (*Server, error) {
	if err := cfg.Repositories.validate(); err != nil {
		return nil, err
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profiles source is required")
	}
	if cfg.JWT == nil {
		return nil, fmt.Errorf("JWT service is required")
	}
	if cfg.Backend == nil {
		cfg.Backend = drafts.NewMemoryBackend()
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	if cfg.MaxExperience <= 0 {
		cfg.MaxExperience = validation.DefaultMaxExperience
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Server{
		cfg:         cfg,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		logger:      logger,
		workspaces:  make(map[string]*workspace),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	s.registerEducation(mux)
	registerList(mux, s, "experience", func(ws *workspace) *reconcile.ListSession[types.ExperienceEntry] { return ws.experience })
	registerList(mux, s, "dependents", func(ws *workspace) *reconcile.ListSession[types.DependentEntry] { return ws.dependents })
	registerList(mux, s, "references", func(ws *workspace) *reconcile.ListSession[types.ReferenceEntry] { return ws.references })
	s.registerWizard(mux)

	s.handler = s.withRateLimit(logging.Middleware(logger)(s.withCORS(mux)))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is done or the process receives SIGINT/SIGTERM.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.rateLimiter.Stop()
	s.logger.Info().Msg("server stopped")
	return nil
}

// authed checks the bearer token and that its subject owns the {id} path segment.
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	owner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := middleware.ApplicantID(r)
		if err != nil || subject != r.PathValue("id") {
			s.errorResponse(w, http.StatusForbidden, "token does not grant access to this applicant")
			return
		}
		h(w, r)
	})
	return middleware.AuthMiddleware(s.cfg.JWT.AsTokenValidator())(owner)
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit refuses clients over their token bucket with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
		}
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())+1))
			}
			s.logger.Warn().Str("client", clientID(r)).Str("path", r.URL.Path).Msg("rate limit exceeded")
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID identifies the caller for rate limiting by remote IP.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, ErrorResponse{Error: message})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &RequestError{Message: "invalid request body: " + err.Error()}
}
