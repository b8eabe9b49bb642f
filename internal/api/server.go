// Package api is the thin HTTP transport around the ingestion pipeline:
// the provider's GET verification handshake, the POST webhook receiver, a
// health check, and the metrics endpoint.
//
// The receiver deliberately acknowledges with 200 even when internal
// processing fails: the provider would otherwise retry-storm a
// deterministically failing payload. The exceptions are signature failures
// (403, generic body, no detail leaked) and configuration faults (500).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/savenote/savenote/internal/config"
	"github.com/savenote/savenote/internal/metrics"
	"github.com/savenote/savenote/internal/pipeline"
	"github.com/savenote/savenote/internal/webhook"
)

// Processor runs one raw webhook body through the ingestion pipeline.
type Processor interface {
	Process(ctx context.Context, rawBody []byte, signatureHeader string) pipeline.Result
}

// signatureHeader is the HMAC header the provider sends.
const signatureHeader = "X-Hub-Signature-256"

// Server is the webhook HTTP server.
type Server struct {
	cfg       config.WebhookConfig
	processor Processor
	metrics   *metrics.Metrics
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new webhook server instance. metrics may be nil.
func New(cfg config.WebhookConfig, processor Processor, m *metrics.Metrics, logger *slog.Logger) *Server {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = config.DefaultMaxBodySize
	}
	return &Server{cfg: cfg, processor: processor, metrics: m, logger: logger}
}

// Start starts the webhook HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.cfg.Listen, "path", s.cfg.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Routes configures the HTTP router.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get(s.cfg.Path, s.handleVerification)
	r.Post(s.cfg.Path, s.handleReceive)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleVerification answers the provider's subscription handshake: echo
// hub.challenge iff the mode is "subscribe" and the token matches.
func (s *Server) handleVerification(w http.ResponseWriter, r *http.Request) {
	if s.cfg.VerifyToken == "" {
		s.logger.Error("verify token is not configured")
		s.count("config_error")
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "server configuration error"})
		return
	}

	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != s.cfg.VerifyToken {
		s.logger.Warn("webhook verification handshake failed", "mode", mode)
		s.count("forbidden")
		s.respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	s.logger.Info("webhook verification handshake succeeded")
	s.count("ok")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// handleReceive runs one delivery through the pipeline.
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	limited := io.LimitReader(r.Body, s.cfg.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		s.count("read_error")
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read request body"})
		return
	}
	if int64(len(body)) > s.cfg.MaxBodySize {
		s.count("too_large")
		s.respondJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload too large"})
		return
	}

	res := s.processor.Process(r.Context(), body, r.Header.Get(signatureHeader))

	switch {
	case errors.Is(res.Err, webhook.ErrMissingSecret):
		// Configuration fault, not a client failure.
		s.count("config_error")
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "server configuration error"})

	case res.Stage == pipeline.StageSignatureVerified && res.Rejected():
		// Generic 403: no signature details leak to the sender.
		s.count("forbidden")
		s.respondJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})

	case res.Rejected():
		// Acknowledge anyway; a deterministic payload failure must not be
		// retried by the provider.
		s.count("rejected")
		s.respondJSON(w, http.StatusOK, receiveResponse{Status: "ignored"})

	default:
		s.count("ok")
		s.respondJSON(w, http.StatusOK, receiveResponse{
			Status:    "success",
			MessageID: res.MessageID,
			Category:  string(res.Category),
			Duplicate: res.Duplicate,
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) count(outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookRequests.WithLabelValues(outcome).Inc()
	}
}

// receiveResponse is the JSON body for acknowledged deliveries.
type receiveResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id,omitempty"`
	Category  string `json:"category,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
