package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

// AuthHandler handles account, login and token endpoints.
type AuthHandler struct {
	AuthService *service.AuthService
	Cookies     CookieConfig
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,pwd"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type CodeRequest struct {
	Code string `json:"code" validate:"required,len=8"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Code     string `json:"code" validate:"required,len=8"`
	Password string `json:"password" validate:"required,pwd"`
}

// LoginResponse carries the tokens as well as setting them as cookies so
// non-browser clients can use the bearer header. Tokens are absent when
// MFARequired is set.
type LoginResponse struct {
	User        domain.UserView `json:"user"`
	MFARequired bool            `json:"mfaRequired"`
	*domain.TokenPair
}

type MessageResponse struct {
	Message string `json:"message"`
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register an account
//	@Description	Creates an unverified account and mails a confirmation link. No session is started.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest		true	"Account details"
//	@Success		201		{object}	domain.UserView		"Created user"
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid input or email already exists"
//	@Failure		429		{object}	httpx.ErrorResponse	"Rate limited"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, user)
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Checks the password. Accounts with MFA get mfaRequired=true and no tokens; finish with /v1/mfa/verify-login.
//	@Description	Otherwise a session is started and the tokens are returned and set as HttpOnly cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest		true	"Credentials"
//	@Success		200		{object}	LoginResponse		"Login result"
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid input"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	httpx.ErrorResponse	"Rate limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password, r.UserAgent())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeLogin(w, h.Cookies, res)
}

func writeLogin(w http.ResponseWriter, cookies CookieConfig, res domain.LoginResult) {
	resp := LoginResponse{User: res.User, MFARequired: res.MFARequired}
	if !res.MFARequired {
		cookies.setAuthCookies(w, res.Tokens)
		resp.TokenPair = &res.Tokens
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleRefresh handles POST /v1/auth/refresh
//
//	@Summary		Refresh the access token
//	@Description	Takes the refresh token from the refreshToken cookie or the JSON body. A new refresh token is only
//	@Description	returned when the session was within a day of expiry and got renewed.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest		false	"Refresh token when not sent as a cookie"
//	@Success		200		{object}	domain.TokenPair	"New tokens"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid refresh token or session"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" {
		var req RefreshRequest
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			writeError(r.Context(), w, &httpx.InvalidRequestError{Message: "request body is not valid JSON"})
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		writeError(r.Context(), w, service.ErrUnauthorized)
		return
	}

	pair, err := h.AuthService.RefreshToken(r.Context(), token)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	h.Cookies.setAuthCookies(w, pair)
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// HandleVerifyEmail handles POST /v1/auth/verify/email
//
//	@Summary		Confirm an email address
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CodeRequest			true	"Code from the confirmation mail"
//	@Success		200		{object}	domain.UserView		"Verified user"
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid or expired code"
//	@Router			/v1/auth/verify/email [post].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	user, err := h.AuthService.VerifyEmail(r.Context(), req.Code)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

// HandleForgotPassword handles POST /v1/auth/password/forgot
//
//	@Summary		Request a password reset mail
//	@Description	At most two reset mails per account every three minutes.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ForgotPasswordRequest	true	"Account email"
//	@Success		200		{object}	MessageResponse			"Mail sent"
//	@Failure		404		{object}	httpx.ErrorResponse		"Unknown email"
//	@Failure		429		{object}	httpx.ErrorResponse		"Too many requests"
//	@Failure		500		{object}	httpx.ErrorResponse		"Mail delivery failed"
//	@Router			/v1/auth/password/forgot [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password reset email sent"})
}

// HandleResetPassword handles POST /v1/auth/password/reset
//
//	@Summary		Reset the password
//	@Description	Consumes the reset code and signs the account out everywhere.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResetPasswordRequest	true	"Code and new password"
//	@Success		200		{object}	domain.UserView			"Updated user"
//	@Failure		400		{object}	httpx.ErrorResponse		"Invalid or expired code"
//	@Router			/v1/auth/password/reset [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	user, err := h.AuthService.ResetPassword(r.Context(), req.Code, req.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	h.Cookies.clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, user)
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Ends the current session and clears the auth cookies.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	MessageResponse		"Logged out"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Logout(r.Context(), principal(r).SessionID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	h.Cookies.clearAuthCookies(w)
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}
