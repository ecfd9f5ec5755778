// Package spotify talks to the Spotify accounts service and the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	gobreaker "github.com/sony/gobreaker/v2"
	slogctx "github.com/veqryn/slog-context"

	"github.com/eventbot/dashboard/internal/breaker"
	"github.com/eventbot/dashboard/internal/config"
	"github.com/eventbot/dashboard/internal/pkce"
)

const (
	defaultScope    = "user-top-read"
	maxErrorBodyLen = 64 << 10
)

type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]Artist]

	clientID    string
	redirectURI string
	scopes      []string
	authURL     string
	tokenURL    string
	apiURL      string
}

func NewClient(cfg *config.Spotify, clientID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{defaultScope}
	}

	return &Client{
		httpClient: httpClient,
		breaker: breaker.New[[]Artist](breaker.Settings{
			Name:         "spotify-api",
			IsSuccessful: isCallerError,
		}),
		clientID:    clientID,
		redirectURI: cfg.RedirectURI,
		scopes:      scopes,
		authURL:     cfg.AuthURL,
		tokenURL:    cfg.TokenURL,
		apiURL:      strings.TrimSuffix(cfg.APIURL, "/"),
	}
}

// AuthURL returns the authorization endpoint URL the browser is redirected to.
func (c *Client) AuthURL(challenge pkce.PKCE, state string) (string, error) {
	u, err := url.Parse(c.authURL)
	if err != nil {
		return "", fmt.Errorf("parsing authorisation endpoint url: %w", err)
	}

	q := u.Query()
	q.Set("client_id", c.clientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", strings.Join(c.scopes, " "))
	q.Set("code_challenge_method", challenge.Method)
	q.Set("code_challenge", challenge.Challenge)
	if state != "" {
		q.Set("state", state)
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ExchangeCode trades an authorization code and its PKCE verifier for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (Token, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.redirectURI)
	data.Set("code_verifier", verifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Token{}, newAuthExchangeError(ctx, resp)
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Token{}, fmt.Errorf("decoding response: %w", err)
	}

	if token.AccessToken == "" {
		return Token{}, ErrEmptyAccessToken
	}

	return token, nil
}

// TopArtists returns the user's top artists, at most limit of them.
func (c *Client) TopArtists(ctx context.Context, accessToken string, limit int) ([]Artist, error) {
	artists, err := c.breaker.Execute(func() ([]Artist, error) {
		return c.topArtists(ctx, accessToken, limit)
	})
	if err != nil {
		return nil, breaker.Wrap(err)
	}

	return artists, nil
}

func (c *Client) topArtists(ctx context.Context, accessToken string, limit int) ([]Artist, error) {
	u, err := url.Parse(c.apiURL + "/me/top/artists")
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(ctx, resp)
	}

	var body topArtistsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if body.Items == nil {
		return []Artist{}, nil
	}

	return body.Items, nil
}

func newAuthExchangeError(ctx context.Context, resp *http.Response) *AuthExchangeError {
	exchangeErr := &AuthExchangeError{
		StatusCode:  resp.StatusCode,
		Description: http.StatusText(resp.StatusCode),
	}

	var body tokenErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyLen)).Decode(&body); err != nil {
		slogctx.Warn(ctx, "Could not decode token endpoint error body", "error", err, "status", resp.StatusCode)
		return exchangeErr
	}

	exchangeErr.Code = body.Error
	switch {
	case body.ErrorDescription != "":
		exchangeErr.Description = body.ErrorDescription
	case body.Error != "":
		exchangeErr.Description = body.Error
	}

	return exchangeErr
}

func newAPIError(ctx context.Context, resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	var body apiErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyLen)).Decode(&body); err != nil {
		slogctx.Debug(ctx, "Could not decode api error body", "error", err, "status", resp.StatusCode)
		return apiErr
	}

	if body.Error.Message != "" {
		apiErr.Message = body.Error.Message
	}

	return apiErr
}

// isCallerError keeps 4xx responses from tripping the breaker.
func isCallerError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError && apiErr.StatusCode != http.StatusTooManyRequests
	}

	return false
}
