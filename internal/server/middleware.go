package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
	"equiplink/internal/server/httpapi"
)

// RequestID stamps a request id into the context and response headers,
// honoring an inbound X-Request-Id from a trusted proxy.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(httpapi.WithRequestID(r.Context(), id)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Logging logs one line per request.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", httpapi.RequestIDFrom(r.Context())),
			)
		})
	}
}

// Resolver verifies an access token into an actor.
type Resolver interface {
	Resolve(token string) (identitydomain.Actor, error)
}

// Authenticate resolves the request credential, if any, into the context
// actor. Anonymous and invalid-credential requests pass through without an
// actor; route groups that need one add RequireAuth.
func Authenticate(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httpapi.Token(r)
			if token != "" {
				if actor, err := resolver.Resolve(token); err == nil {
					r = r.WithContext(httpapi.WithActor(r.Context(), actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that carry no resolved actor.
func RequireAuth(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := httpapi.ActorFrom(r.Context()); !ok {
				httpapi.Error(logger, w, apperr.Unauthenticated("server.RequireAuth", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
