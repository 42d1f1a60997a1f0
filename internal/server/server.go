// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/comigor/astro-go/internal/agent"
	"github.com/comigor/astro-go/internal/config"
	"github.com/comigor/astro-go/internal/errs"
	"github.com/comigor/astro-go/internal/logger"
	"github.com/comigor/astro-go/web"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

// Limits enforced by the AskRequest validate tags, in characters.
const (
	maxMessageLen   = 4096
	maxSessionIDLen = 128
)

// DefaultSessionID is used when a request carries no session_id.
const DefaultSessionID = "default_user"

// Responder produces answers; *agent.Agent implements it.
type Responder interface {
	Respond(ctx context.Context, question, sessionID string) (agent.Answer, error)
	Lookup(ctx context.Context, question string, minScore float64) (agent.Answer, error)
}

// AskRequest is the body of POST /ask and POST /chat.
type AskRequest struct {
	Message   string `json:"message" validate:"required,max=4096"`
	SessionID string `json:"session_id" validate:"max=128"`
}

// AskResponse is the success body of POST /ask and POST /chat.
type AskResponse struct {
	Response     string  `json:"response"`
	Context      string  `json:"context"`
	ResponseTime float64 `json:"response_time"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

var validate = validator.New()

// Server routes HTTP requests to the responder.
type Server struct {
	responder Responder
	cfg       config.Config
	router    chi.Router
}

// New wires the routes.
func New(responder Responder, cfg config.Config) *Server {
	s := &Server{responder: responder, cfg: cfg}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(EchoRequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(CORS(cfg.Server.AllowedOrigins))

	r.Post("/ask", s.handleAsk)
	r.Post("/chat", s.handleChat)
	r.Handle("/*", web.Handler())

	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// answers wait on the LLM
		WriteTimeout: s.cfg.LLM.Timeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.L.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := decodeAsk(w, r)
	if !ok {
		return
	}
	if req.SessionID == "" {
		req.SessionID = DefaultSessionID
	}

	r = withAskLogger(w, r)
	log := logger.FromContext(r.Context()).With("session", req.SessionID)
	log.Debug("ask request", "message", req.Message)

	ans, err := s.responder.Respond(r.Context(), req.Message, req.SessionID)
	if err != nil {
		log.Error("ask failed", "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	elapsed := roundSeconds(time.Since(start))
	log.Info("ask answered", "response_time", elapsed)
	writeJSON(w, http.StatusOK, AskResponse{Response: ans.Text, Context: ans.Context, ResponseTime: elapsed})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, ok := decodeAsk(w, r)
	if !ok {
		return
	}

	ans, err := s.responder.Lookup(r.Context(), req.Message, s.cfg.Knowledge.MinScore)
	if err != nil {
		logger.L.Error("chat lookup failed", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Response: ans.Text, Context: ans.Context, ResponseTime: roundSeconds(time.Since(start))})
}

// decodeAsk parses and validates the body; on failure it has already replied.
func decodeAsk(w http.ResponseWriter, r *http.Request) (AskRequest, bool) {
	var req AskRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return req, false
	}
	req.Message = strings.TrimSpace(req.Message)
	req.SessionID = strings.TrimSpace(req.SessionID)

	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return req, false
	}
	return req, true
}

// validationMessage turns the first failed rule into a message for the caller.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch fe := verrs[0]; {
	case fe.Field() == "Message" && fe.Tag() == "required":
		return "No message received"
	case fe.Field() == "Message" && fe.Tag() == "max":
		return fmt.Sprintf("message is too long (max %d characters)", maxMessageLen)
	case fe.Field() == "SessionID" && fe.Tag() == "max":
		return fmt.Sprintf("session_id is too long (max %d characters)", maxSessionIDLen)
	default:
		return fmt.Sprintf("invalid %s", fe.Field())
	}
}

func statusFor(err error) int {
	if errors.Is(err, errs.ErrEmptyMessage) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
