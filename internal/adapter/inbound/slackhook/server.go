package slackhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sunbeamhq/sunbeam-bot/internal/adapter/inbound/slackhook/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	RequestsPerMinute int
	APIToken          string
}

// Server wraps the interactivity webhook and the management API behind a
// shared middleware stack, with graceful shutdown support.
type Server struct {
	cfg         ServerConfig
	interaction *Handler
	verifier    *middleware.SlackVerifier
	api         http.Handler
	logger      *log.Logger
	srv         *http.Server
}

// NewServer creates a Server. api may be nil to disable the management
// endpoints.
func NewServer(cfg ServerConfig, interaction *Handler, verifier *middleware.SlackVerifier, api http.Handler, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:         cfg,
		interaction: interaction,
		verifier:    verifier,
		api:         api,
		logger:      logger,
	}
}

// SetupRoutes builds the handler tree. Route layout:
//
//	GET  /health              - liveness probe
//	POST /slack/interactions  - signed Slack interactivity webhook
//	     /api/approvals...    - bearer-guarded management API
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Signature verification sees the raw bytes buffered below; the handler
	// decodes only after it passes.
	mux.Handle("/slack/interactions", s.verifier.Middleware(s.interaction))

	if s.api != nil {
		mux.Handle("/api/", middleware.BearerAuth(s.cfg.APIToken)(s.api))
	}

	rpm := s.cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 120
	}

	// Middleware stack, outermost first: BodyReader -> Logging -> RateLimit
	// -> SecurityHeaders.
	var h http.Handler = mux
	h = middleware.SecurityHeaders(h)
	h = middleware.NewRateLimit(rpm)(h)
	h = middleware.NewLogging(s.logger)(h)
	h = middleware.BodyReader(h)
	return h
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.SetupRoutes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("interactivity server listening on :%d", s.cfg.Port)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("interactivity server shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
