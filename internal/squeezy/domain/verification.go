package domain

import "time"

type VerificationPurpose string

const (
	PurposeEmailVerification VerificationPurpose = "email_verification"
	PurposePasswordReset     VerificationPurpose = "password_reset"
	PurposeTwoFactor         VerificationPurpose = "two_factor"
)

// VerificationCode is a one-time code mailed to a user. Only the fingerprint
// of the code is stored; the plaintext exists in the outgoing mail.
type VerificationCode struct {
	ID        string
	UserID    string
	Purpose   VerificationPurpose
	CodeHash  string // base64url SHA-256 of the code
	ExpiresAt time.Time
	CreatedAt time.Time
}
