package squeezysdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

// Error codes the API returns that callers commonly branch on.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeValidation         = "validation_error"
	ErrorCodeUnauthorized       = "unauthorized"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeEmailExists        = "email_already_exists"
	ErrorCodeBidTooLow          = "bid_too_low"
	ErrorCodeAuctionNotActive   = "auction_not_active"
	ErrorCodeTooManyRequests    = "too_many_requests"
	ErrorCodeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorCodeServerError        = "server_error"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Details     map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// MFARequiredError is returned by Login when the account has MFA enabled.
// Finish the login with CompleteMFALogin.
type MFARequiredError struct {
	User User
}

func (e *MFARequiredError) Error() string {
	return "MFA required to complete login"
}

// parseErrorResponse turns an error body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var errResp httpx.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.Description,
			Details:     errResp.Details,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
