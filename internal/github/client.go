// Package github is the provider side of the relay: it builds the
// authorization URL the popup is redirected to and exchanges the returned
// code for an access token, keeping the client secret server-side.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

const (
	// Provider is the identifier used in the postMessage handshake.
	Provider = "github"

	// DefaultHostname serves github.com; GitHub Enterprise installs
	// override it through configuration.
	DefaultHostname = "github.com"

	// Scope grants the CMS repository and user access.
	Scope = "repo,user"

	authorizePath = "/login/oauth/authorize"
	tokenPath     = "/login/oauth/access_token"
)

// ErrMalformedResponse indicates the provider answered but the body could
// not be parsed as JSON.
var ErrMalformedResponse = errors.New("malformed token response")

// AuthError is a logical error reported by the provider itself in the token
// response ("bad_verification_code" and friends). The code is surfaced to
// the client verbatim.
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider error: %s", e.Code)
}

// Client talks to a single GitHub (or GitHub Enterprise) instance.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
}

// NewClient creates a provider client for the given hostname.
func NewClient(clientID, clientSecret, hostname string) *Client {
	if hostname == "" {
		hostname = DefaultHostname
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      "https://" + hostname,
	}
}

// WithBaseURL overrides the provider base URL. Used by tests to point the
// client at a stub server.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// AuthCodeURL builds the provider authorization URL for one login attempt.
// The state parameter is the CSRF token also set as a cookie on the
// redirect response.
func (c *Client) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("scope", Scope)
	q.Set("state", state)
	return c.baseURL + authorizePath + "?" + q.Encode()
}

type tokenRequest struct {
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// Exchange trades the authorization code for an access token.
//
// Error taxonomy, distinguished by the caller with errors.As / errors.Is:
// a transport failure is returned wrapped, an unparseable body is
// ErrMalformedResponse, and a logical provider error is *AuthError.
// There is no retry; every failure is terminal for the attempt.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	body, err := json.Marshal(tokenRequest{
		Code:         code,
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer().Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	return parseTokenResponse(data)
}

// parseTokenResponse parses the provider token endpoint body into an OAuth2
// token, or into the provider's own error when it reports one.
func parseTokenResponse(data []byte) (*oauth2.Token, error) {
	var resp tokenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if resp.Error != "" {
		return nil, &AuthError{Code: resp.Error}
	}

	token := &oauth2.Token{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
	}
	if resp.Scope != "" {
		token = token.WithExtra(map[string]any{"scope": resp.Scope})
	}
	return token, nil
}

func (c *Client) doer() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	// No timeout beyond what the transport enforces; a hung exchange is
	// bounded by the browser giving up on the popup.
	return http.DefaultClient
}
