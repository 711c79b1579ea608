// Package twitchapi contains minimal helpers to interact with the Twitch
// Helix and OAuth APIs: user token validation, display name resolution, and
// channel-points reward management.
package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"
)

const (
	defaultHelixURL = "https://api.twitch.tv"
	defaultAuthURL  = "https://id.twitch.tv"
)

// Client provides the Helix methods the bot needs. App-level calls (user
// lookups) use the cached client-credentials token source; channel-points
// calls require the broadcaster's user token, passed per call.
type Client struct {
	ClientID   string
	AppTokens  oauth2.TokenSource
	HTTPClient *http.Client
	HelixURL   string // override for tests
	AuthURL    string // override for tests
}

// NewClient builds a client with an app access token source for the given
// client credentials.
func NewClient(clientID, clientSecret string) *Client {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     twitch.Endpoint.TokenURL,
	}
	return &Client{
		ClientID:  clientID,
		AppTokens: cfg.TokenSource(context.Background()),
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) helixURL() string {
	if c.HelixURL != "" {
		return c.HelixURL
	}
	return defaultHelixURL
}

func (c *Client) authURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return defaultAuthURL
}

func (c *Client) appToken() (string, error) {
	if c.AppTokens == nil {
		return "", fmt.Errorf("missing app token source")
	}
	tok, err := c.AppTokens.Token()
	if err != nil {
		return "", fmt.Errorf("app token: %w", err)
	}
	return tok.AccessToken, nil
}

// do performs an authenticated Helix request and decodes the JSON response
// into out when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.helixURL()+path, reader)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Client-Id", c.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("helix %s %s failed: %s: %s", method, path, resp.Status, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ValidateUserToken checks a user token against the OAuth validate endpoint.
// It returns (false, nil) when Twitch rejects the token with 401; any other
// failure is an error.
func (c *Client) ValidateUserToken(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authURL()+"/oauth2/validate", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http().Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized:
		return false, nil
	default:
		return false, fmt.Errorf("token validate failed: %s", resp.Status)
	}
}

// DisplayNames resolves user ids to display names using the app token.
// Unknown ids are absent from the result.
func (c *Client) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	tok, err := c.appToken()
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	for _, id := range userIDs {
		q.Add("id", id)
	}
	var body struct {
		Data []struct {
			ID          string `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/helix/users", tok, q, nil, &body); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(body.Data))
	for _, u := range body.Data {
		names[u.ID] = u.DisplayName
	}
	return names, nil
}
