package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/papercomputeco/patchbay/pkg/utils"
)

// Session is what a caller needs to complete a browser authorization: the
// URL to open and the verifier that must round-trip back to the exchange.
type Session struct {
	URL      string `json:"url"`
	Verifier string `json:"verifier"`
}

// TokenResponse is the provider's answer to a token-endpoint request.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// Client talks to the identity provider's authorize and token endpoints.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) *Client {
	return &Client{
		config:     config,
		httpClient: config.httpClient(),
	}
}

// BeginAuthorization starts a fresh PKCE session. Every call generates a
// new verifier and challenge.
func (c *Client) BeginAuthorization() (*Session, error) {
	verifier, challenge, err := GeneratePKCE()
	if err != nil {
		return nil, err
	}

	authURL, err := url.Parse(c.config.AuthorizeURL)
	if err != nil {
		return nil, fmt.Errorf("parsing authorize URL: %w", err)
	}

	query := authURL.Query()
	query.Set("code", "true")
	query.Set("client_id", c.config.ClientID)
	query.Set("response_type", "code")
	query.Set("redirect_uri", c.config.RedirectURI)
	query.Set("scope", c.config.Scopes)
	query.Set("code_challenge", challenge)
	query.Set("code_challenge_method", "S256")
	query.Set("state", verifier)
	authURL.RawQuery = query.Encode()

	return &Session{
		URL:      authURL.String(),
		Verifier: verifier,
	}, nil
}

// ExchangeCode redeems a pasted authorization code. The provider's manual
// flow hands the user "<code>#<state>"; when no "#" is present the whole
// string is the code and state is sent empty.
func (c *Client) ExchangeCode(ctx context.Context, rawCode, verifier string) (*TokenResponse, error) {
	code, state, _ := strings.Cut(rawCode, "#")

	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"state":         {state},
		"client_id":     {c.config.ClientID},
		"redirect_uri":  {c.config.RedirectURI},
		"code_verifier": {verifier},
	}

	return c.doTokenRequest(ctx, data)
}

// Refresh redeems a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.config.ClientID},
	}

	return c.doTokenRequest(ctx, data)
}

func (c *Client) doTokenRequest(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	// One shot only. A rejected grant is not retried.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned %d: %s",
			resp.StatusCode, utils.Truncate(strings.TrimSpace(string(body)), 256))
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	return &token, nil
}
