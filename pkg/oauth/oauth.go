// Package oauth implements the OAuth 2.0 authorization-code flow with PKCE
// for the managed Claude upstream, plus the credential lifecycle around it:
// exchange, persistence, and lazy refresh.
//
// The flow is stateless on this side. The state parameter is set to the
// PKCE verifier and round-trips through the caller, so no session needs to
// be held between beginning an authorization and redeeming its code.
package oauth

import (
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultClientID is the public OAuth client id of Claude Code.
	DefaultClientID = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"

	// DefaultAuthorizeURL is where the user grants access. The code=true
	// parameter asks the provider for the copy/paste code display flow.
	DefaultAuthorizeURL = "https://claude.ai/oauth/authorize"

	// DefaultTokenURL redeems authorization codes and refresh tokens.
	DefaultTokenURL = "https://console.anthropic.com/v1/oauth/token"

	// DefaultRedirectURI is the provider-hosted page that displays the
	// authorization code for the user to paste back.
	DefaultRedirectURI = "https://console.anthropic.com/oauth/code/callback"

	// DefaultScopes are the scopes required to create keys and run inference.
	DefaultScopes = "org:create_api_key user:profile user:inference"
)

// ErrNoCredential is returned when no credential record has been stored
// yet, or the stored one cannot be refreshed without re-authorizing.
var ErrNoCredential = errors.New("no stored credentials")

// Config holds the endpoints and identifiers for the authorization flow.
// Tests point the URLs at local servers; everything else uses DefaultConfig.
type Config struct {
	ClientID     string
	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	Scopes       string

	// HTTPClient overrides the client used for token requests.
	HTTPClient *http.Client
}

// DefaultConfig returns the managed upstream's fixed identifiers.
func DefaultConfig() Config {
	return Config{
		ClientID:     DefaultClientID,
		AuthorizeURL: DefaultAuthorizeURL,
		TokenURL:     DefaultTokenURL,
		RedirectURI:  DefaultRedirectURI,
		Scopes:       DefaultScopes,
	}
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
