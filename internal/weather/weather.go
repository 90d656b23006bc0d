// Package weather fetches current conditions at the port from OpenWeather.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"portflow/internal/cache"
)

// Current is the condensed observation returned to the dashboard.
type Current struct {
	Temperature float64 `json:"temperature"`
	Weather     string  `json:"weather"`
	Humidity    float64 `json:"humidity"`
	Wind        float64 `json:"wind"`
	Icon        string  `json:"icon"`
}

// Error reports an upstream failure. Details carries the upstream payload or
// the transport error text.
type Error struct {
	Message string
	Details any
}

func (e *Error) Error() string {
	if s, ok := e.Details.(string); ok && s != "" {
		return e.Message + ": " + s
	}
	return e.Message
}

const (
	msgInvalidData = "invalid weather data from API"
	msgFetchFailed = "failed to fetch weather"
)

// Config configures a Client.
type Config struct {
	APIKey   string
	BaseURL  string
	City     string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// Client queries the current weather endpoint, caching successful results.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  cache.Cache
	logger *zap.Logger
}

// NewClient returns a client. A nil cache disables caching.
func NewClient(cfg Config, c cache.Cache, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  c,
		logger: logger,
	}
}

type apiResponse struct {
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *Client) cacheKey() string {
	return "weather:current:" + strings.ToLower(c.cfg.City)
}

// Current returns the current conditions for the configured city.
func (c *Client) Current(ctx context.Context) (Current, error) {
	if c.cache != nil {
		if raw, ok, err := c.cache.Get(ctx, c.cacheKey()); err != nil {
			c.logger.Warn("weather cache read failed", zap.Error(err))
		} else if ok {
			var cur Current
			if json.Unmarshal(raw, &cur) == nil {
				return cur, nil
			}
		}
	}
	cur, err := c.fetch(ctx)
	if err != nil {
		return Current{}, err
	}
	if c.cache != nil {
		raw, _ := json.Marshal(cur)
		if err := c.cache.Set(ctx, c.cacheKey(), raw, c.cfg.CacheTTL); err != nil {
			c.logger.Warn("weather cache write failed", zap.Error(err))
		}
	}
	return cur, nil
}

func (c *Client) fetch(ctx context.Context) (Current, error) {
	q := url.Values{}
	q.Set("q", c.cfg.City)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")
	q.Set("lang", "fr")
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/weather?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Current{}, &Error{Message: msgFetchFailed, Details: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Current{}, &Error{Message: msgFetchFailed, Details: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Current{}, &Error{Message: msgFetchFailed, Details: err.Error()}
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Current{}, &Error{Message: msgFetchFailed, Details: fmt.Sprintf("decode response: %v", err)}
	}
	if parsed.Main == nil || len(parsed.Weather) == 0 {
		var details any
		if json.Unmarshal(body, &details) != nil {
			details = string(body)
		}
		return Current{}, &Error{Message: msgInvalidData, Details: details}
	}
	return Current{
		Temperature: parsed.Main.Temp,
		Weather:     parsed.Weather[0].Description,
		Humidity:    parsed.Main.Humidity,
		Wind:        parsed.Wind.Speed,
		Icon:        parsed.Weather[0].Icon,
	}, nil
}

// AsError extracts an upstream weather error.
func AsError(err error) (*Error, bool) {
	var we *Error
	ok := errors.As(err, &we)
	return we, ok
}
