package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

// AccessTokenCookie is the cookie the login endpoints set for browsers.
const AccessTokenCookie = "accessToken"

// Authenticator resolves a raw access token into a Principal. It must check
// that the session behind the token still exists.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (Principal, error)
}

// AuthnMiddleware requires a valid access token, taken from the bearer header
// or the access token cookie, and stores the resulting Principal in the
// request context.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw := AccessToken(r)
			if raw == "" {
				writeBearerError(w, "missing access token")
				return
			}

			p, err := a.Authenticate(ctx, raw)
			if err != nil {
				log.Debug("access token rejected", "err", err)
				writeBearerError(w, "invalid or expired access token")
				return
			}

			ctx = slogx.With(ctx, "user_id", p.UserID, "session_id", p.SessionID)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, p)))
		})
	}
}

// AccessToken extracts the access token from the request, preferring the
// Authorization header over the cookie.
func AccessToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if rest, ok := strings.CutPrefix(authz, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RFC 6750 error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", desc, nil)
}
