package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError turns any handler error into an ErrorResponse. Internal
// failures are logged and never leak their message.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var ire *httpx.InvalidRequestError
	if errors.As(err, &ire) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", ire.Message, ire.Details)
		return
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", ve.Message, ve.Details)
		return
	}

	var se *service.Error
	if errors.As(err, &se) {
		if se.Kind == service.KindInternal {
			slogx.FromContext(ctx).Error("request failed", "code", se.Code, "err", err)
		}
		httpx.WriteError(w, statusFor(se.Kind), se.Code, se.Message, nil)
		return
	}

	slogx.FromContext(ctx).Error("request failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal server error", nil)
}

// principal returns the caller set by the authn middleware. Routes that use
// it are always mounted behind that middleware.
func principal(r *http.Request) httpx.Principal {
	p, _ := httpx.PrincipalFromContext(r.Context())
	return p
}

// sessionAuthenticator adapts the auth service to the httpx middleware.
type sessionAuthenticator struct {
	auth *service.AuthService
}

func (a sessionAuthenticator) Authenticate(ctx context.Context, accessToken string) (httpx.Principal, error) {
	p, err := a.auth.Authenticate(ctx, accessToken)
	if err != nil {
		return httpx.Principal{}, err
	}
	return httpx.Principal{UserID: p.UserID, SessionID: p.SessionID}, nil
}
