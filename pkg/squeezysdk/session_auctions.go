package squeezysdk

import (
	"context"
	"net/http"
	"net/url"
)

// CreateAuction lists a new auction owned by the session's user.
func (s *Session) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*Auction, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auctions", req)
	if err != nil {
		return nil, err
	}

	var auction Auction
	if err := decodeJSON(resp, &auction, http.StatusCreated); err != nil {
		return nil, err
	}
	return &auction, nil
}

// PlaceBid bids amount on an active auction. It fails with ErrorCodeBidTooLow
// unless amount beats the current price.
func (s *Session) PlaceBid(ctx context.Context, auctionID string, amount int64) (*BidResult, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auctions/"+url.PathEscape(auctionID)+"/bids", map[string]int64{
		"amount": amount,
	})
	if err != nil {
		return nil, err
	}

	var res BidResult
	if err := decodeJSON(resp, &res, http.StatusCreated); err != nil {
		return nil, err
	}
	return &res, nil
}
