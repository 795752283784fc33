package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLen is the shortest HMAC secret we accept. HS256 secrets shorter
// than the hash output weaken the MAC.
const minSecretLen = 32

// CodecOptions configures a Codec.
type CodecOptions struct {
	// AccessSecret signs access tokens. Required.
	AccessSecret []byte

	// RefreshSecret signs refresh tokens. Required and must differ from
	// AccessSecret so a leaked access key cannot forge refresh tokens.
	RefreshSecret []byte

	// AccessTTL defaults to DefaultAccessTokenTTL.
	AccessTTL time.Duration

	// RefreshTTL defaults to DefaultRefreshTokenTTL.
	RefreshTTL time.Duration

	// Audience defaults to DefaultAudience.
	Audience string

	// Now is the clock verification checks exp and iat against. Signing
	// takes its time from the caller, so Now must be the same clock the
	// callers pass to SignAccess and SignRefresh. Defaults to time.Now.
	Now func() time.Time
}

type keyConfig struct {
	secret []byte
	ttl    time.Duration
}

// Codec signs and verifies the access/refresh token pair. Each class has its
// own HS256 secret and lifetime; both share the audience claim.
type Codec struct {
	keys     map[KeyClass]keyConfig
	audience string
	now      func() time.Time
}

// NewCodec validates the options and returns a ready Codec.
func NewCodec(opts CodecOptions) (*Codec, error) {
	if len(opts.AccessSecret) < minSecretLen {
		return nil, fmt.Errorf("jwtx: access secret must be at least %d bytes", minSecretLen)
	}
	if len(opts.RefreshSecret) < minSecretLen {
		return nil, fmt.Errorf("jwtx: refresh secret must be at least %d bytes", minSecretLen)
	}
	if string(opts.AccessSecret) == string(opts.RefreshSecret) {
		return nil, errors.New("jwtx: access and refresh secrets must differ")
	}

	accessTTL := opts.AccessTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	refreshTTL := opts.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	audience := opts.Audience
	if audience == "" {
		audience = DefaultAudience
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Codec{
		keys: map[KeyClass]keyConfig{
			Access:  {secret: opts.AccessSecret, ttl: accessTTL},
			Refresh: {secret: opts.RefreshSecret, ttl: refreshTTL},
		},
		audience: audience,
		now:      now,
	}, nil
}

// TTL returns the configured lifetime for a key class.
func (c *Codec) TTL(class KeyClass) time.Duration {
	return c.keys[class].ttl
}

// SignAccess mints an access token bound to a user and session.
func (c *Codec) SignAccess(p AccessPayload, now time.Time) (string, time.Time, error) {
	if p.UserID == "" || p.SessionID == "" {
		return "", time.Time{}, ErrInvalidClaim
	}
	return c.sign(Access, NewClaims(p.UserID, p.SessionID, c.keys[Access].ttl, c.audience, now))
}

// SignRefresh mints a refresh token for a session.
func (c *Codec) SignRefresh(p RefreshPayload, now time.Time) (string, time.Time, error) {
	if p.SessionID == "" {
		return "", time.Time{}, ErrInvalidClaim
	}
	return c.sign(Refresh, NewClaims("", p.SessionID, c.keys[Refresh].ttl, c.audience, now))
}

func (c *Codec) sign(class KeyClass, claims Claims) (string, time.Time, error) {
	key, ok := c.keys[class]
	if !ok {
		return "", time.Time{}, fmt.Errorf("jwtx: unknown key class %q", class)
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["typ"] = "JWT"
	signed, err := t.SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: sign %s token: %w", class, err)
	}
	return signed, claims.Expiry(), nil
}
