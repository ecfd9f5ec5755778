// Package telegram sends notifications through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/eventbot/dashboard/internal/breaker"
)

const (
	ParseModeHTML = "HTML"

	defaultErrorDescription = "sending the telegram message failed"
	maxErrorBodyLen         = 64 << 10
)

var ErrMissingBotToken = errors.New("telegram bot token is not configured")

// APIError is returned when the Bot API answers with a non-2xx status.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api returned status %d: %s", e.StatusCode, e.Description)
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type response struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[struct{}]
	baseURL    string
	botToken   string
}

func NewClient(baseURL, botToken string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		breaker: breaker.New[struct{}](breaker.Settings{
			Name:         "telegram-api",
			IsSuccessful: isCallerError,
		}),
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		botToken: botToken,
	}
}

// SendMessage posts an HTML formatted message to the given chat.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if c.botToken == "" {
		return ErrMissingBotToken
	}

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.sendMessage(ctx, chatID, text)
	})

	return breaker.Wrap(err)
}

func (c *Client) sendMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the endpoint, which contains the bot token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("executing request: %w", urlErr.Err)
		}
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Description: defaultErrorDescription}

		var body response
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyLen)).Decode(&body); err == nil && body.Description != "" {
			apiErr.Description = body.Description
		}

		return apiErr
	}

	return nil
}

func isCallerError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < http.StatusInternalServerError && apiErr.StatusCode != http.StatusTooManyRequests
	}

	return false
}
