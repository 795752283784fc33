package domain

import "time"

// TokenPair is what login, MFA completion and refresh hand back. On refresh
// RefreshToken is empty unless the session was renewed.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshTokenExpiresAt,omitzero"`
}

// LoginResult is the outcome of a password login. When MFARequired is set no
// session exists yet and Tokens is empty.
type LoginResult struct {
	User        UserView  `json:"user"`
	MFARequired bool      `json:"mfaRequired"`
	Tokens      TokenPair `json:"-"`
	Session     *Session  `json:"-"`
}
