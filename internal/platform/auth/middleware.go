package auth

import (
	"net/http"
	"strings"

	"github.com/skillforge/api/internal/platform/httpx"
)

// Authenticator guards routes that require an authenticated session.
type Authenticator struct {
	sessions *SessionManager
}

// NewAuthenticator wires an Authenticator over the session manager.
func NewAuthenticator(sessions *SessionManager) *Authenticator {
	return &Authenticator{sessions: sessions}
}

// RequireSession rejects requests without a valid bearer session token and
// attaches the verified identity to the request context.
func (a *Authenticator) RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if a == nil || a.sessions == nil {
				httpx.WriteError(ctx, w, httpx.NewError("auth_unavailable", "authentication is unavailable", http.StatusServiceUnavailable))
				return
			}

			token := bearerToken(r)
			if token == "" {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
				return
			}

			identity, err := a.sessions.Verify(token)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "invalid or expired session", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, &identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
