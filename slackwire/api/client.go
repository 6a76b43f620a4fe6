package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client calls Web API methods.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Web API client.
// baseURL should be the base URL of the API, e.g., "https://slack.com/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the token sent with every call.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SetRateLimit throttles calls to perSecond with the given burst.
// A zero perSecond disables throttling.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if perSecond <= 0 {
		c.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ConnectRTM asks for a websocket URL for the real-time API.
func (c *Client) ConnectRTM(ctx context.Context) (*ConnectResponse, error) {
	raw, err := c.Call(ctx, "rtm.connect", nil)
	if err != nil {
		return nil, err
	}
	var resp ConnectResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}

// Call invokes a Web API method and returns the raw reply body.
// A reply with "ok": false is returned as *Error.
func (c *Client) Call(ctx context.Context, method string, params Params) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &Error{Code: "ratelimited"}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	var status Response
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !status.OK {
		code := status.Error
		if code == "" {
			code = "unknown_error"
		}
		return nil, &Error{Code: code}
	}
	return body, nil
}
