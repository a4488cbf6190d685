package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// Portal selects which login endpoint is used. Each portal only accepts
// its own kind of account.
type Portal string

const (
	PortalStudent    Portal = "student"
	PortalAdmin      Portal = "admin"
	PortalSuperAdmin Portal = "superadmin"
)

// SDKClient is a client for the evote authentication service. It covers
// the unauthenticated calls and produces Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSessionFromTokens resumes a session from stored tokens.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int64) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}
