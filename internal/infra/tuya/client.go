package tuya

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smarter-bulb/internal/domain"
)

const DefaultTimeout = 15 * time.Second

type Client struct {
	clientID   string
	secret     string
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	token    string
	expireAt time.Time
}

type Option func(*Client)

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// Endpoint resolves the OpenAPI base URL. An explicit endpoint wins over the
// region shorthand.
func Endpoint(region, endpoint string) string {
	if endpoint != "" {
		return strings.TrimSuffix(endpoint, "/")
	}
	switch strings.ToLower(region) {
	case "us":
		return "https://openapi.tuyaus.com"
	case "eu":
		return "https://openapi.tuyaeu.com"
	case "cn":
		return "https://openapi.tuyacn.com"
	default:
		return "https://openapi.tuyain.com"
	}
}

func NewClient(clientID, secret, region string, opts ...Option) *Client {
	return NewClientWithURL(clientID, secret, Endpoint(region, ""), opts...)
}

func NewClientWithURL(clientID, secret, baseURL string, opts ...Option) *Client {
	c := &Client{
		clientID:   clientID,
		secret:     secret,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
	Result  json.RawMessage `json:"result"`
}

// SendCommands posts the batch to the device in one attempt. Every failure is
// a *domain.TransportError.
func (c *Client) SendCommands(ctx context.Context, deviceID string, batch domain.CommandBatch) error {
	const op = "send commands"

	body, err := json.Marshal(batch)
	if err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("encoding batch: %w", err)}
	}

	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	path := fmt.Sprintf("/v1.0/devices/%s/commands", url.PathEscape(deviceID))
	status, resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}

	if status < 200 || status > 299 {
		return &domain.TransportError{Op: op, StatusCode: status, Msg: strings.TrimSpace(string(resp))}
	}

	var result envelope
	if err := json.Unmarshal(resp, &result); err != nil {
		return &domain.TransportError{Op: op, StatusCode: status, Err: fmt.Errorf("parsing response: %w", err)}
	}

	if !result.Success {
		return &domain.TransportError{Op: op, StatusCode: status, Code: result.Code, Msg: result.Msg}
	}

	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	c.signRequest(req, token, method, path, body)
	req.Header.Set("access_token", token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	const op = "token"

	c.mu.RLock()
	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(5*time.Minute).Before(c.expireAt) {
		return nil
	}

	path := "/v1.0/token?grant_type=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("creating token request: %w", err)}
	}
	c.signRequest(req, "", http.MethodGet, path, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: fmt.Errorf("sending token request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading token response: %w", err)}
	}

	var tokenResp struct {
		Success bool   `json:"success"`
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		Result  struct {
			AccessToken string `json:"access_token"`
			ExpireTime  int64  `json:"expire_time"`
		} `json:"result"`
	}

	if err = json.Unmarshal(body, &tokenResp); err != nil {
		return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing token response: %w", err)}
	}

	if !tokenResp.Success {
		return &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Code: tokenResp.Code, Msg: tokenResp.Msg}
	}

	c.token = tokenResp.Result.AccessToken
	c.expireAt = time.Now().Add(time.Duration(tokenResp.Result.ExpireTime) * time.Second)

	return nil
}

func (c *Client) signRequest(req *http.Request, token, method, path string, body []byte) {
	timestamp := fmt.Sprintf("%d", time.Now().UnixMilli())
	nonce := uuid.NewString()

	req.Header.Set("client_id", c.clientID)
	req.Header.Set("sign", c.calcSign(timestamp, nonce, token, method, path, body))
	req.Header.Set("t", timestamp)
	req.Header.Set("nonce", nonce)
	req.Header.Set("sign_method", "HMAC-SHA256")
}

func (c *Client) calcSign(timestamp, nonce, token, method, path string, body []byte) string {
	str := c.clientID + token + timestamp + nonce + StringToSign(method, path, body)
	h := hmac.New(sha256.New, []byte(c.secret))
	h.Write([]byte(str))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// StringToSign is the canonical request string covered by the signature.
// No extra headers are signed.
func StringToSign(method, path string, body []byte) string {
	bodyHash := sha256.Sum256(body)
	return method + "\n" + hex.EncodeToString(bodyHash[:]) + "\n\n" + path
}
