package squeezysdk

import (
	"context"
	"net/http"
)

// Register creates an account. A verification code is mailed to the address.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", req)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with email and password. When the account has MFA
// enabled it returns a *MFARequiredError and no session.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	return c.sessionFromLogin(resp)
}

// CompleteMFALogin finishes a login that returned *MFARequiredError.
func (c *SDKClient) CompleteMFALogin(ctx context.Context, email, code string) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/mfa/verify-login", map[string]string{
		"email": email,
		"code":  code,
	})
	if err != nil {
		return nil, err
	}
	return c.sessionFromLogin(resp)
}

func (c *SDKClient) sessionFromLogin(resp *http.Response) (*Session, error) {
	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}
	if login.MFARequired {
		return nil, &MFARequiredError{User: login.User}
	}
	return newSession(c, login.TokenPair), nil
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *SDKClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// VerifyEmail confirms an account with the code from the verification mail.
func (c *SDKClient) VerifyEmail(ctx context.Context, code string) (*User, error) {
	return c.postCode(ctx, "/v1/auth/verify/email", map[string]string{"code": code})
}

// ForgotPassword mails a password reset code.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/password/forgot", map[string]string{"email": email})
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

// ResetPassword sets a new password. Every session of the account is ended.
func (c *SDKClient) ResetPassword(ctx context.Context, code, password string) (*User, error) {
	return c.postCode(ctx, "/v1/auth/password/reset", map[string]string{"code": code, "password": password})
}

func (c *SDKClient) postCode(ctx context.Context, path string, body map[string]string) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}
