package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/domain"
	"github.com/aussiebroadwan/squeezy/internal/squeezy/service"
	"github.com/aussiebroadwan/squeezy/pkg/httpx"
)

// AuctionsHandler handles auction listing, creation and bidding.
type AuctionsHandler struct {
	AuctionService *service.AuctionService
}

// Prices are integer minor units (cents).
type CreateAuctionRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	ImageURL    string    `json:"imageUrl" validate:"omitempty,url"`
	StartPrice  int64     `json:"startPrice" validate:"gte=0"`
	StartTime   time.Time `json:"startTime" validate:"required"`
	EndTime     time.Time `json:"endTime" validate:"required,gtfield=StartTime"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// HandleList handles GET /v1/auctions
//
//	@Summary		List auctions
//	@Description	Every auction, newest first.
//	@Tags			Auctions
//	@Produce		json
//	@Success		200	{array}	domain.Auction	"Auctions"
//	@Router			/v1/auctions [get].
func (h *AuctionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	auctions, err := h.AuctionService.ListAuctions(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if auctions == nil {
		auctions = []domain.Auction{}
	}
	httpx.WriteJSON(w, http.StatusOK, auctions)
}

// HandleGet handles GET /v1/auctions/{id}
//
//	@Summary		Get an auction
//	@Description	The auction with its bids, newest first.
//	@Tags			Auctions
//	@Produce		json
//	@Param			id	path		string					true	"Auction ID"
//	@Success		200	{object}	domain.AuctionDetail	"Auction"
//	@Failure		404	{object}	httpx.ErrorResponse		"Auction not found"
//	@Router			/v1/auctions/{id} [get].
func (h *AuctionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.AuctionService.GetAuction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, detail)
}

// HandleCreate handles POST /v1/auctions
//
//	@Summary		Create an auction
//	@Description	Opens immediately when startTime is not in the future, otherwise waits as PENDING.
//	@Tags			Auctions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateAuctionRequest	true	"Auction"
//	@Success		201		{object}	domain.Auction			"Created auction"
//	@Failure		400		{object}	httpx.ErrorResponse		"Invalid input"
//	@Failure		401		{object}	httpx.ErrorResponse		"Invalid or missing access token"
//	@Router			/v1/auctions [post].
func (h *AuctionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateAuctionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	a, err := h.AuctionService.CreateAuction(r.Context(), service.CreateAuctionInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		StartPrice:  req.StartPrice,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		OwnerID:     principal(r).UserID,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

// HandleBid handles POST /v1/auctions/{id}/bids
//
//	@Summary		Place a bid
//	@Description	The amount must beat the current price while the auction is ACTIVE.
//	@Tags			Auctions
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Auction ID"
//	@Param			request	body		PlaceBidRequest		true	"Bid"
//	@Success		201		{object}	service.BidResult	"Accepted bid and updated auction"
//	@Failure		400		{object}	httpx.ErrorResponse	"Bid too low or auction not active"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid or missing access token"
//	@Failure		404		{object}	httpx.ErrorResponse	"Auction not found"
//	@Router			/v1/auctions/{id}/bids [post].
func (h *AuctionsHandler) HandleBid(w http.ResponseWriter, r *http.Request) {
	var req PlaceBidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	res, err := h.AuctionService.PlaceBid(r.Context(), r.PathValue("id"), principal(r).UserID, req.Amount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}
