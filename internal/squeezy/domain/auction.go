package domain

import "time"

type AuctionStatus string

const (
	AuctionPending AuctionStatus = "PENDING"
	AuctionActive  AuctionStatus = "ACTIVE"
	AuctionEnded   AuctionStatus = "ENDED"
)

// Auction prices are in minor units (cents). CurrentPrice only ever rises.
type Auction struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	StartPrice   int64         `json:"startPrice"`
	CurrentPrice int64         `json:"currentPrice"`
	Status       AuctionStatus `json:"status"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	OwnerID      string        `json:"ownerId"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// StatusAt is the status the auction should have at now according to its
// schedule. ENDED is terminal.
func (a Auction) StatusAt(now time.Time) AuctionStatus {
	switch {
	case a.Status == AuctionEnded || !now.Before(a.EndTime):
		return AuctionEnded
	case !now.Before(a.StartTime):
		return AuctionActive
	default:
		return AuctionPending
	}
}

// Bid is immutable once stored.
type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuctionDetail is an auction with its bid history, newest bid first.
type AuctionDetail struct {
	Auction
	Bids []Bid `json:"bids"`
}
