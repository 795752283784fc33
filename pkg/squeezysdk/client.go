package squeezysdk

import (
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the squeezy API. It provides access to public
// operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new client for the API at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSessionFromTokens creates a session from tokens obtained elsewhere,
// e.g. stored by a previous run.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, accessExpiresAt time.Time) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    accessExpiresAt.Add(-refreshBuffer),
	}
}
