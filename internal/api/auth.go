package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/houhousishu/houhou/internal/catalog"
)

// SessionLookup returns the current session, or nil when signed out.
type SessionLookup interface {
	Session(ctx context.Context) (*catalog.Session, error)
}

// RequireSession rejects requests unless someone is signed in. The session
// is the one persisted by the last login, whichever backend issued it.
func RequireSession(sessions SessionLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Session(r.Context())
			if err != nil {
				writeError(w, logger, err)
				return
			}
			if s == nil {
				httpError(w, http.StatusUnauthorized, "authentication_error", "sign in required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
