package squeezysdk

import "time"

// ============================================================================
// Accounts
// ============================================================================

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	MFAEnabled    bool      `json:"enable2FA"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TokenPair is returned by login and refresh. RefreshToken is empty on a
// refresh that did not extend the session.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshTokenExpiresAt,omitzero"`
}

type LoginResponse struct {
	User        User `json:"user"`
	MFARequired bool `json:"mfaRequired"`
	TokenPair
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Sessions
// ============================================================================

type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsCurrent bool      `json:"isCurrent"`
}

type CurrentSession struct {
	Session SessionInfo `json:"session"`
	User    User        `json:"user"`
}

// ============================================================================
// MFA
// ============================================================================

type MFASetup struct {
	AlreadyEnabled bool   `json:"alreadyEnabled,omitempty"`
	Message        string `json:"message"`
	Secret         string `json:"secret,omitempty"`
	URI            string `json:"uri,omitempty"`
	QRImageURL     string `json:"qrImageUrl,omitempty"`
}

type MFAStatus struct {
	Enabled bool   `json:"enable2FA"`
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// ============================================================================
// Auctions
// ============================================================================

type CreateAuctionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	StartPrice  int64     `json:"startPrice"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

type Auction struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	StartPrice   int64     `json:"startPrice"`
	CurrentPrice int64     `json:"currentPrice"`
	Status       string    `json:"status"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	OwnerID      string    `json:"ownerId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Bid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auctionId"`
	BidderID  string    `json:"bidderId"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuctionDetail struct {
	Auction
	Bids []Bid `json:"bids"`
}

type BidResult struct {
	Bid     Bid     `json:"bid"`
	Auction Auction `json:"auction"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status      string            `json:"status"`
	Uptime      string            `json:"uptime"`
	Version     string            `json:"version"`
	Connections int               `json:"connections"`
	Checks      map[string]string `json:"checks,omitempty"`
}
