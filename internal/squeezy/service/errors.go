package service

import "errors"

// Kind classifies a service error so transports can pick a status code
// without knowing every sentinel.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindBadRequest
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error is a client-facing failure. Code is stable and machine readable,
// Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrEmailAlreadyExists   = &Error{KindBadRequest, "email_already_exists", "Email already exists"}
	ErrInvalidCredentials   = &Error{KindUnauthorized, "invalid_credentials", "Invalid email or password"}
	ErrUnauthorized         = &Error{KindUnauthorized, "unauthorized", "Authentication required"}
	ErrInvalidOrExpiredCode = &Error{KindBadRequest, "invalid_or_expired_code", "Invalid or expired verification code"}
	ErrTooManyRequests      = &Error{KindTooManyRequests, "too_many_requests", "Too many requests, please try again later"}
	ErrInvalidMFACode       = &Error{KindBadRequest, "invalid_mfa_code", "Invalid MFA code"}
	ErrMFASetupMismatch     = &Error{KindBadRequest, "mfa_setup_mismatch", "Secret does not match the pending MFA setup"}
	ErrUserNotFound         = &Error{KindNotFound, "user_not_found", "User not found"}
	ErrSessionNotFound      = &Error{KindNotFound, "session_not_found", "Session not found"}
	ErrAuctionNotFound      = &Error{KindNotFound, "auction_not_found", "Auction not found"}
	ErrAuctionNotActive     = &Error{KindBadRequest, "auction_not_active", "Auction is not active"}
	ErrBidTooLow            = &Error{KindBadRequest, "bid_too_low", "Bid must be higher than the current price"}
	ErrMailDelivery         = &Error{KindInternal, "mail_delivery_failed", "Failed to send email"}
)

// ValidationError carries per-field messages for rejected input.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string { return "validation: " + e.Message }

// KindOf reports the kind of err. Anything that is not a service error is
// internal.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
