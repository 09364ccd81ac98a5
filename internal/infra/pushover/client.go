package pushover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultURL   = "https://api.pushover.net/1/messages.json"
	defaultTitle = "Smart Bulb"

	// Pushover caps messages at 1024 characters.
	maxMessageLen = 1024

	priorityHigh = "1"
)

// Client posts bulb command outcomes to a Pushover user. A client without
// credentials does nothing.
type Client struct {
	token      string
	userKey    string
	title      string
	url        string
	httpClient *http.Client
}

type Option func(*Client)

// WithTitle replaces the notification title, e.g. with the bulb's room.
func WithTitle(title string) Option {
	return func(c *Client) {
		if title != "" {
			c.title = title
		}
	}
}

func NewClient(token, userKey string, opts ...Option) *Client {
	return NewClientWithURL(token, userKey, defaultURL, opts...)
}

func NewClientWithURL(token, userKey, endpoint string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		userKey:    userKey,
		title:      defaultTitle,
		url:        endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

// Notify sends message. Failure reports from the controller start with
// "Error:" and go out at high priority.
func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	if utf8.RuneCountInString(message) > maxMessageLen {
		message = string([]rune(message)[:maxMessageLen])
	}

	form := url.Values{
		"token":   {c.token},
		"user":    {c.userKey},
		"title":   {c.title},
		"message": {message},
	}
	if strings.HasPrefix(message, "Error:") {
		form.Set("priority", priorityHigh)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil || resp.StatusCode != http.StatusOK {
		if len(result.Errors) > 0 {
			return fmt.Errorf("pushover error %d: %s", resp.StatusCode, strings.Join(result.Errors, "; "))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("pushover error: %s", resp.Status)
		}
		return fmt.Errorf("decoding pushover response: %w", err)
	}
	if result.Status != 1 {
		return fmt.Errorf("pushover rejected message: %s", strings.Join(result.Errors, "; "))
	}

	return nil
}
