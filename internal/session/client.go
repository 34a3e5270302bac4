package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"hort-presence-backend/config"
)

// Client talks to the external group/session backend. All mutations and reads
// go through it; it holds no cache and no client-side source of truth. The
// HTTP client is injected explicitly so callers control the transport.
type Client struct {
	baseURL  string
	headers  map[string]string
	client   *http.Client
	loc      *time.Location
	pageSize int
	logf     func(format string, args ...any)
}

// NewClient creates a session client from the backend configuration. A nil
// httpClient gets a default one, honoring the configured proxy.
func NewClient(cfg *config.BackendConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		var transport http.RoundTripper = &http.Transport{}
		if cfg.HTTPProxy != "" {
			proxyURL, err := url.Parse(cfg.HTTPProxy)
			if err != nil {
				log.Printf("Warning: Invalid proxy URL %q: %v. Client will not use a proxy.", cfg.HTTPProxy, err)
			} else {
				transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
			}
		}
		httpClient = &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		}
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: failed to load timezone %q: %v. Falling back to UTC.", cfg.Timezone, err)
		loc = time.UTC
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		headers:  cfg.Headers,
		client:   httpClient,
		loc:      loc,
		pageSize: pageSize,
		logf:     log.Printf,
	}
}

// do performs one round trip and returns the response body and status code.
// The returned error covers transport-level failures only; callers interpret
// the status code because a 404 is absence, not failure, on some paths.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, resp.StatusCode, nil
}

// request is the common path for operations where any non-2xx is a failure.
func (c *Client) request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	data, status, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("backend returned status %d for %s %s", status, method, path)
	}
	return data, nil
}

// getList fetches a path and normalizes whatever list envelope comes back.
// An unrecognized envelope is not an error: it degrades to an empty list with
// a diagnostic, so an upstream shape drift cannot take a page down.
func (c *Client) getList(ctx context.Context, path string) (json.RawMessage, error) {
	data, err := c.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	arr, ok := normalizeList(data)
	if !ok {
		c.logf("session: unrecognized list envelope at %s, treating as empty", path)
		return json.RawMessage("[]"), nil
	}
	return arr, nil
}
