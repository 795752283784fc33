package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Verify checks the token against the secret of the given class and returns
// its claims. Failures always map onto one of the package errors so callers
// can treat them as "unauthenticated" rather than as faults.
func (c *Codec) Verify(class KeyClass, tokenStr string) (Claims, error) {
	key, ok := c.keys[class]
	if !ok {
		return Claims{}, fmt.Errorf("jwtx: unknown key class %q", class)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return key.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidClaim
	}
	if claims.SessionID == "" {
		return Claims{}, ErrInvalidClaim
	}

	return claims, nil
}

// VerifyAccess verifies an access token and returns its payload.
func (c *Codec) VerifyAccess(tokenStr string) (AccessPayload, error) {
	claims, err := c.Verify(Access, tokenStr)
	if err != nil {
		return AccessPayload{}, err
	}
	if claims.UserID == "" {
		return AccessPayload{}, ErrInvalidClaim
	}
	return AccessPayload{UserID: claims.UserID, SessionID: claims.SessionID}, nil
}

// VerifyRefresh verifies a refresh token and returns its payload.
func (c *Codec) VerifyRefresh(tokenStr string) (RefreshPayload, error) {
	claims, err := c.Verify(Refresh, tokenStr)
	if err != nil {
		return RefreshPayload{}, err
	}
	return RefreshPayload{SessionID: claims.SessionID}, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
