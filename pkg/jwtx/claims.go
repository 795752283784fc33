package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants for the access/refresh pair.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens. It
	// matches the session window so a refresh token never outlives the session
	// it was minted for by more than one renewal.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	// DefaultAudience is baked into every token we sign.
	DefaultAudience = "user"
)

// KeyClass selects which secret and lifetime a token is signed with.
type KeyClass string

const (
	Access  KeyClass = "access"
	Refresh KeyClass = "refresh"
)

// AccessPayload is what an access token authorises: a user acting through
// one session.
type AccessPayload struct {
	UserID    string
	SessionID string
}

// RefreshPayload only names the session, the user is looked up from it.
type RefreshPayload struct {
	SessionID string
}

// Claims are the JWT claims for both token classes. Refresh tokens leave
// UserID empty.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId"`
}

// NewClaims builds minimally-correct claims for the given class.
func NewClaims(userID, sessionID string, ttl time.Duration, audience string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		UserID:    userID,
		SessionID: sessionID,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// minted in the same second for the same session still differ because of it.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Expiry returns the exp claim or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
