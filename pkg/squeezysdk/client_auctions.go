package squeezysdk

import (
	"context"
	"net/http"
	"net/url"
)

// ListAuctions returns every auction, newest first.
func (c *SDKClient) ListAuctions(ctx context.Context) ([]Auction, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auctions", nil)
	if err != nil {
		return nil, err
	}

	var auctions []Auction
	if err := decodeJSON(resp, &auctions, http.StatusOK); err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetAuction returns an auction with its bids, newest first.
func (c *SDKClient) GetAuction(ctx context.Context, id string) (*AuctionDetail, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auctions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var detail AuctionDetail
	if err := decodeJSON(resp, &detail, http.StatusOK); err != nil {
		return nil, err
	}
	return &detail, nil
}
