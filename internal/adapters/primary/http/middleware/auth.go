package middleware

import (
	"context"
	"net/http"

	"github.com/lorrc/cas-server/internal/auth"
)

type contextKey string

const SessionClaimsKey contextKey = "sessionClaims"

// SessionCookieName is the default name of the signed SSO session cookie;
// callers that configure a different name must pass it to SessionMiddleware
// themselves.
const SessionCookieName = "CASTGC"

// SessionMiddleware resolves the SSO session cookie, if present, into
// verified SessionClaims and stores them in the request context. It never
// rejects a request for a missing or invalid cookie (/login and the
// validation endpoints all need to run unauthenticated); callers that
// require an active session look up SessionClaimsKey themselves and treat
// its absence as "no session".
func SessionMiddleware(tm *auth.TokenManager, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = SessionCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.ValidateToken(cookie.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), SessionClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext retrieves the verified session claims stored by
// SessionMiddleware, if any.
func SessionFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(SessionClaimsKey).(*auth.SessionClaims)
	return claims, ok
}
