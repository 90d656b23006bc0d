// Package predictions proxies the traffic forecasting service.
package predictions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portflow/pkg/domain"
)

const (
	DefaultDaysAhead = 7
	MaxDaysAhead     = 90
)

// ErrUpstream wraps failures of the prediction service.
var ErrUpstream = errors.New("prediction service failed")

// ParseDaysAhead reads the days_ahead query value. Empty means the default.
func ParseDaysAhead(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultDaysAhead, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxDaysAhead {
		return 0, domain.ValidationError{Field: "days_ahead", Message: fmt.Sprintf("must be an integer between 1 and %d", MaxDaysAhead)}
	}
	return n, nil
}

// Client calls the prediction service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8001"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

// Traffic returns the forecast document unchanged.
func (c *Client) Traffic(ctx context.Context, daysAhead int) (json.RawMessage, error) {
	endpoint := c.baseURL + "/predictions/traffic?" + url.Values{"days_ahead": {strconv.Itoa(daysAhead)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: error requesting %s: %v", ErrUpstream, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: error response %d while requesting %s", ErrUpstream, resp.StatusCode, endpoint)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: invalid JSON from %s", ErrUpstream, endpoint)
	}
	return json.RawMessage(body), nil
}
