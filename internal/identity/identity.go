package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// HeaderUserID carries the caller id resolved by the upstream auth gateway.
const HeaderUserID = "X-User-Id"

var ErrUnauthenticated = errors.New("unauthenticated")

type ctxKey string

const ctxUserID ctxKey = "user_id"

// Provider supplies the identity of the current request, or false when the
// caller is anonymous.
type Provider interface {
	CurrentIdentity(ctx context.Context) (string, bool)
}

// ContextProvider reads the identity stored by Middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentIdentity(ctx context.Context) (string, bool) {
	id := FromContext(ctx)
	return id, id != ""
}

func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func FromContext(ctx context.Context) string {
	if v := ctx.Value(ctxUserID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Middleware stores X-User-Id in the request context. Requests without the
// header pass through anonymously; each operation decides how to treat them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), uid)))
	})
}

// Require resolves the identity or returns ErrUnauthenticated.
func Require(ctx context.Context, p Provider) (string, error) {
	id, ok := p.CurrentIdentity(ctx)
	if !ok || strings.TrimSpace(id) == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
