package httpapi

import (
	"context"
	"net/http"

	"github.com/juliodz03/websitetmdt-client/internal/platform"
	"github.com/juliodz03/websitetmdt-client/internal/session"
)

type sessionCtxKey struct{}

const sessionHeader = "x-session-id"

// SessionMiddleware resolves the browsing context from the x-session-id
// header, creating one on first contact, and echoes the id back so the
// client can persist it. The resolved session and its platform
// credentials ride on the request context.
func SessionMiddleware(mgr *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := mgr.GetOrCreate(r.Context(), r.Header.Get(sessionHeader))
			if err != nil {
				respondError(w, http.StatusServiceUnavailable, "session_unavailable", "could not resolve session")
				return
			}
			w.Header().Set(sessionHeader, sess.ID)

			id := sess.Identity()
			creds := platform.Credentials{SessionID: id.SessionID}
			if id.IsAuthenticated() {
				creds.Token = id.Auth.Token
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
			ctx = platform.WithCredentials(ctx, creds)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return sess
}
