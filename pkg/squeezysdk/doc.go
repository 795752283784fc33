/*
Package squeezysdk is a Go client for the squeezy HTTP API.

# SDKClient vs Session

  - SDKClient: public endpoints (register, login, password reset, auctions)
  - Session: endpoints that need a logged-in user, with automatic refresh

A typical login:

	client := squeezysdk.NewSDKClient("https://api.example.com")

	session, err := client.Login(ctx, email, password)
	var mfaErr *squeezysdk.MFARequiredError
	if errors.As(err, &mfaErr) {
		session, err = client.CompleteMFALogin(ctx, email, totpCode)
	}

	auction, err := session.CreateAuction(ctx, squeezysdk.CreateAuctionRequest{...})
	bid, err := session.PlaceBid(ctx, auction.ID, 150)

# Token refresh

A Session refreshes its access token shortly before expiry using the refresh
token it was created with. The server only returns a new refresh token when it
extended the underlying session, so the old one is kept otherwise.

# Errors

Non-2xx responses are returned as *APIError carrying the status code, the
machine readable code and any per-field validation details.
*/
package squeezysdk
