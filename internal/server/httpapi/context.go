package httpapi

import (
	"context"
	"net/http"
	"strings"

	"equiplink/internal/apperr"
	identitydomain "equiplink/internal/identity/domain"
)

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
)

// AccessTokenCookie is the cookie UI requests carry the access token in. API
// clients use the Authorization header instead.
const AccessTokenCookie = "equiplink_access"

// WithActor stamps the resolved actor into the context.
func WithActor(ctx context.Context, actor identitydomain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the request's actor. The second return is false when the
// request never passed authentication middleware.
func ActorFrom(ctx context.Context) (identitydomain.Actor, bool) {
	a, ok := ctx.Value(actorKey).(identitydomain.Actor)
	return a, ok
}

// RequireActor returns the actor or an unauthenticated error for handlers on
// protected routes.
func RequireActor(ctx context.Context) (identitydomain.Actor, error) {
	a, ok := ActorFrom(ctx)
	if !ok {
		return identitydomain.Actor{}, apperr.Unauthenticated("httpapi.RequireActor", nil)
	}
	return a, nil
}

// WithRequestID stamps the request id into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the request id, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Token extracts the access token from the Authorization header (Bearer) or,
// failing that, the access cookie. Returns "" when the request is anonymous.
func Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(t)
		}
		return ""
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
