package server

import (
	"net/http"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/comigor/astro-go/internal/logger"
)

// askIDHeader carries the id of one answered question.
const askIDHeader = "X-Ask-Id"

// EchoRequestID returns the id chi's RequestID assigned in the response headers.
func EchoRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(chiMiddleware.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// withAskLogger tags the request with a fresh ask id and attaches a logger
// carrying it, so agent logs for this question can be correlated.
func withAskLogger(w http.ResponseWriter, r *http.Request) *http.Request {
	askID := uuid.NewString()
	w.Header().Set(askIDHeader, askID)
	log := logger.L.With("request_id", chiMiddleware.GetReqID(r.Context()), "ask_id", askID)
	return r.WithContext(logger.WithContext(r.Context(), log))
}
