package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

const (
	// RefreshTokenCookie only travels to the refresh endpoint.
	RefreshTokenCookie = "refreshToken"
	refreshCookiePath  = "/v1/auth/refresh"
)

// CookieConfig controls the auth cookies. Secure is off only in development
// where the front-end runs on plain http.
type CookieConfig struct {
	Secure bool
	Domain string
}

func (c CookieConfig) cookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   c.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// setAuthCookies writes the access cookie and, when the pair carries one,
// the refresh cookie.
func (c CookieConfig) setAuthCookies(w http.ResponseWriter, pair domain.TokenPair) {
	http.SetCookie(w, c.cookie(httpx.AccessTokenCookie, pair.AccessToken, "/", pair.AccessExpiresAt))
	if pair.RefreshToken != "" {
		http.SetCookie(w, c.cookie(RefreshTokenCookie, pair.RefreshToken, refreshCookiePath, pair.RefreshExpiresAt))
	}
}

func (c CookieConfig) clearAuthCookies(w http.ResponseWriter) {
	for _, ck := range []*http.Cookie{
		c.cookie(httpx.AccessTokenCookie, "", "/", time.Unix(0, 0)),
		c.cookie(RefreshTokenCookie, "", refreshCookiePath, time.Unix(0, 0)),
	} {
		ck.MaxAge = -1
		http.SetCookie(w, ck)
	}
}
