package httputil

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JVK-PAGE/status-page-plivo/internal/identity"
)

// CORSMiddleware handles preflight requests and adds CORS headers.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

const sessionKey contextKey = "session"

// SessionAuthenticator resolves a bearer token into a caller session.
type SessionAuthenticator interface {
	Authenticate(token string) (identity.Session, error)
}

// AuthMiddleware extracts and verifies the bearer token, storing the
// resulting session in the request context. Requests without a valid
// session are rejected with 401 before reaching any handler.
func AuthMiddleware(auth SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			session, err := auth.Authenticate(token)
			if err != nil {
				if errors.Is(err, identity.ErrNoOrgBinding) {
					Error(w, http.StatusUnauthorized, "session is not associated with an organization")
					return
				}
				Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the authenticated session stored by
// AuthMiddleware, or false when the request carried none.
func SessionFromContext(ctx context.Context) (identity.Session, bool) {
	session, ok := ctx.Value(sessionKey).(identity.Session)
	return session, ok
}

// WithSession returns a context carrying the given session. Used by tests
// that exercise handlers without the middleware stack.
func WithSession(ctx context.Context, session identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
