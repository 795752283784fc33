package http

import (
	"net/http"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
	Cookies    CookieConfig
}

type MFAVerifyRequest struct {
	Code   string `json:"code" validate:"required,len=6,numeric"`
	Secret string `json:"secret" validate:"required,max=128"`
}

type MFAVerifyLoginRequest struct {
	Code  string `json:"code" validate:"required,len=6,numeric"`
	Email string `json:"email" validate:"required,email"`
}

// HandleSetup handles POST /v1/mfa/setup
//
//	@Summary		Start TOTP enrollment
//	@Description	Returns the secret, otpauth URI and a QR code image. An unconfirmed secret from an earlier call is reused.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.MFASetup		"TOTP secret and QR code"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Failure		500	{object}	httpx.ErrorResponse	"Internal server error"
//	@Router			/v1/mfa/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	setup, err := h.MFAService.GenerateSetup(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, setup)
}

// HandleVerify handles POST /v1/mfa/verify
//
//	@Summary		Confirm TOTP enrollment
//	@Description	Enables MFA once the code matches the pending secret.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MFAVerifyRequest	true	"Code and the secret being confirmed"
//	@Success		200		{object}	domain.MFAStatus	"MFA status"
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid code or secret"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/mfa/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req MFAVerifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	status, err := h.MFAService.ConfirmSetup(r.Context(), principal(r).UserID, req.Code, req.Secret)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleRevoke handles PUT /v1/mfa/revoke
//
//	@Summary		Turn MFA off
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	domain.MFAStatus	"MFA status"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/mfa/revoke [put].
func (h *MFAHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	status, err := h.MFAService.Revoke(r.Context(), principal(r).UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

// HandleVerifyLogin handles POST /v1/mfa/verify-login
//
//	@Summary		Finish an MFA login
//	@Description	Second step after /v1/auth/login answered mfaRequired=true. Starts the session.
//	@Tags			MFA
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MFAVerifyLoginRequest	true	"TOTP code and account email"
//	@Success		200		{object}	LoginResponse			"Tokens"
//	@Failure		400		{object}	httpx.ErrorResponse		"Invalid code"
//	@Failure		401		{object}	httpx.ErrorResponse		"MFA not enabled for the account"
//	@Failure		404		{object}	httpx.ErrorResponse		"Unknown email"
//	@Router			/v1/mfa/verify-login [post].
func (h *MFAHandler) HandleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req MFAVerifyLoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := h.MFAService.VerifyForLogin(r.Context(), req.Code, req.Email, r.UserAgent())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeLogin(w, h.Cookies, res)
}
