// Package model talks to the language-model endpoint.
package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"codeloop/internal/logging"
)

// Error reports a non-2xx response from the model endpoint. Turn-fatal:
// the agent loop stops and surfaces it without retrying.
type Error struct {
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("model endpoint returned status %d", e.StatusCode)
}

// Client is the minimal interface the agent loop uses to call a model.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HTTPClient calls the model over a single HTTP GET with the rendered
// prompt as a query parameter. Any 2xx response body is the reply text.
type HTTPClient struct {
	mu       sync.RWMutex
	endpoint string
	httpc    *http.Client
}

// NewHTTPClient creates a client for the given endpoint URL.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// SetEndpoint replaces the endpoint URL. Used on config reload.
func (c *HTTPClient) SetEndpoint(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endpoint = endpoint
}

// Complete sends the prompt and returns the reply body.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.mu.RLock()
	endpoint := c.endpoint
	c.mu.RUnlock()

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid model endpoint %q: %w", endpoint, err)
	}
	q := u.Query()
	q.Set("prompt", prompt)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build model request: %w", err)
	}

	logging.ModelDebug("calling model endpoint (%d byte prompt)", len(prompt))
	start := time.Now()

	resp, err := c.httpc.Do(req)
	if err != nil {
		logging.ModelWarn("model call failed: %v", err)
		return "", fmt.Errorf("model call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read model reply: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logging.ModelWarn("model returned status %d", resp.StatusCode)
		return "", &Error{StatusCode: resp.StatusCode}
	}

	logging.Model("model reply received: %d bytes in %s", len(body), time.Since(start))
	return string(body), nil
}
