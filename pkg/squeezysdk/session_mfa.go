package squeezysdk

import (
	"context"
	"net/http"
)

// SetupMFA starts enrolment and returns the secret to load into an
// authenticator app.
func (s *Session) SetupMFA(ctx context.Context) (*MFASetup, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/mfa/setup", nil)
	if err != nil {
		return nil, err
	}

	var setup MFASetup
	if err := decodeJSON(resp, &setup, http.StatusOK); err != nil {
		return nil, err
	}
	return &setup, nil
}

// ConfirmMFA enables MFA once the app produces a valid code for secret.
func (s *Session) ConfirmMFA(ctx context.Context, secret, code string) (*MFAStatus, error) {
	return s.mfaStatus(ctx, http.MethodPost, "/v1/mfa/verify", map[string]string{
		"secret": secret,
		"code":   code,
	})
}

// RevokeMFA disables MFA.
func (s *Session) RevokeMFA(ctx context.Context) (*MFAStatus, error) {
	return s.mfaStatus(ctx, http.MethodPut, "/v1/mfa/revoke", nil)
}

func (s *Session) mfaStatus(ctx context.Context, method, path string, body any) (*MFAStatus, error) {
	resp, err := s.doAuthRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var status MFAStatus
	if err := decodeJSON(resp, &status, http.StatusOK); err != nil {
		return nil, err
	}
	return &status, nil
}
