package http

import (
	"net/http"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/broadcast"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

// WSHandler upgrades to the live update websocket. Authentication is
// optional: anonymous clients may watch auction rooms, signed-in clients may
// also chat.
type WSHandler struct {
	Hub           *broadcast.Hub
	Authenticator httpx.Authenticator
}

// ServeHTTP handles GET /v1/ws
//
//	@Summary		Live updates websocket
//	@Description	Client frames: {"action":"join_auction","auction_id":"..."}, leave_auction, join_chat,
//	@Description	{"action":"chat_message","message":"..."}. Server frames: {"room":"...","event":"...","payload":{...}}
//	@Description	with events new_auction, new_bid, auction_updated and new_message.
//	@Tags			Live
//	@Success		101	"Switching Protocols"
//	@Router			/v1/ws [get].
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if tok := httpx.AccessToken(r); tok != "" {
		if p, err := h.Authenticator.Authenticate(r.Context(), tok); err == nil {
			userID = p.UserID
		}
	}
	h.Hub.Serve(w, r, userID)
}
