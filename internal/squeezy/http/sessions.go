package http

import (
	"net/http"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

// SessionsHandler lets a user see and end their own sessions.
type SessionsHandler struct {
	SessionService *service.SessionService
}

type SessionView struct {
	domain.Session
	IsCurrent bool `json:"isCurrent"`
}

// HandleList handles GET /v1/sessions
//
//	@Summary		List active sessions
//	@Description	Unexpired sessions of the caller, newest first. The one making the request is flagged isCurrent.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		SessionView			"Sessions"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/sessions [get].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p := principal(r)

	sessions, err := h.SessionService.ListActiveForUser(r.Context(), p.UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{Session: s, IsCurrent: s.ID == p.SessionID})
	}
	httpx.WriteJSON(w, http.StatusOK, views)
}

// HandleCurrent handles GET /v1/sessions/current
//
//	@Summary		Current session
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	service.CurrentSession	"Session and its user"
//	@Failure		401	{object}	httpx.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/sessions/current [get].
func (h *SessionsHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	cur, err := h.SessionService.GetWithUser(r.Context(), principal(r).SessionID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cur)
}

// HandleDelete handles DELETE /v1/sessions/{id}
//
//	@Summary		End a session
//	@Description	Only the caller's own sessions can be ended.
//	@Tags			Sessions
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string				true	"Session ID"
//	@Success		200	{object}	MessageResponse		"Session removed"
//	@Failure		401	{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Failure		404	{object}	httpx.ErrorResponse	"Session not found"
//	@Router			/v1/sessions/{id} [delete].
func (h *SessionsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionService.DeleteForUser(r.Context(), r.PathValue("id"), principal(r).UserID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Session removed"})
}
