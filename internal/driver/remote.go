package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client drives a headless-browser sidecar service over JSON/HTTP. The
// sidecar owns the actual browser session (and its persisted login
// profile); this client maps the Driver capability set onto its endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a sidecar client. baseURL is the sidecar service URL,
// e.g. "http://127.0.0.1:9515".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Find calls block server side up to their timeout budget.
			Timeout: 120 * time.Second,
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type findRequest struct {
	Selectors []string `json:"selectors"`
	TimeoutMS int64    `json:"timeoutMs"`
	Condition string   `json:"condition"` // visible | clickable
}

type findResponse struct {
	Found     bool   `json:"found"`
	ElementID string `json:"elementId"`
	Error     string `json:"error,omitempty"`
}

type findAllResponse struct {
	ElementIDs []string `json:"elementIds"`
	Error      string   `json:"error,omitempty"`
}

type boolResponse struct {
	Value bool   `json:"value"`
	Error string `json:"error,omitempty"`
}

func (c *Client) Navigate(ctx context.Context, url string) error {
	c.log.Debug().Str("url", url).Msg("navigate")
	return c.do(ctx, http.MethodPost, "/session/url", map[string]string{"url": url}, nil)
}

func (c *Client) FindVisible(ctx context.Context, candidates []string, timeout time.Duration) (Element, error) {
	return c.find(ctx, candidates, timeout, "visible")
}

func (c *Client) WaitClickable(ctx context.Context, candidates []string, timeout time.Duration) (Element, error) {
	return c.find(ctx, candidates, timeout, "clickable")
}

func (c *Client) find(ctx context.Context, candidates []string, timeout time.Duration, cond string) (Element, error) {
	req := findRequest{Selectors: candidates, TimeoutMS: timeout.Milliseconds(), Condition: cond}
	var resp findResponse
	if err := c.do(ctx, http.MethodPost, "/session/element", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, fmt.Errorf("%w: %s", ErrTimeout, resp.Error)
	}
	return &remoteElement{client: c, id: resp.ElementID}, nil
}

func (c *Client) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var resp findAllResponse
	err := c.do(ctx, http.MethodPost, "/session/elements", map[string]string{"selector": selector}, &resp)
	if err != nil {
		return nil, err
	}
	els := make([]Element, 0, len(resp.ElementIDs))
	for _, id := range resp.ElementIDs {
		els = append(els, &remoteElement{client: c, id: id})
	}
	return els, nil
}

// Close ends the sidecar session. The sidecar keeps its browser profile on
// disk, so the next run reuses the authenticated state.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.do(ctx, http.MethodDelete, "/session", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("driver: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("driver: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("driver: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("driver: %s %s failed with status %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("driver: decode response: %w", err)
		}
	}
	return nil
}

type remoteElement struct {
	client *Client
	id     string
}

func (e *remoteElement) Click(ctx context.Context) error {
	return e.client.do(ctx, http.MethodPost, "/session/element/"+e.id+"/click", nil, nil)
}

func (e *remoteElement) IsDisplayed(ctx context.Context) (bool, error) {
	var resp boolResponse
	err := e.client.do(ctx, http.MethodGet, "/session/element/"+e.id+"/displayed", nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Value, nil
}

func (e *remoteElement) IsClickable(ctx context.Context) (bool, error) {
	var resp boolResponse
	err := e.client.do(ctx, http.MethodGet, "/session/element/"+e.id+"/clickable", nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Value, nil
}

func (e *remoteElement) SendKeys(ctx context.Context, text string) error {
	return e.client.do(ctx, http.MethodPost, "/session/element/"+e.id+"/keys", map[string]string{"text": text}, nil)
}
