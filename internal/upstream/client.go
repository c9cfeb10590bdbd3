// Package upstream fetches recipe, item and auction datasets from the
// crafting profit API.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public crafting profit API.
	DefaultBaseURL = "https://crafting-profit.herokuapp.com"

	// Request timeout
	DefaultTimeout = 30 * time.Second

	// Backoff settings
	InitialBackoff = 2 * time.Second
	MaxBackoff     = 60 * time.Second
	BackoffFactor  = 2.0

	userAgent = "Crafting-Profit/1.0"
)

// DefaultRateLimit allows 2 requests per second.
var DefaultRateLimit = rate.Every(500 * time.Millisecond)

// Client provides access to the crafting profit API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	stats      *ClientStats
	statsMu    sync.RWMutex

	// Backoff tracking
	backoff         time.Duration
	lastFailureTime time.Time
	backoffMu       sync.Mutex
}

// ClientOptions configures the client.
type ClientOptions struct {
	// BaseURL of the API (default: DefaultBaseURL)
	BaseURL string

	// RateLimit controls request frequency (default: 2 req/second)
	RateLimit rate.Limit

	// Timeout for HTTP requests (default: 30 seconds)
	Timeout time.Duration

	// HTTPClient allows custom HTTP client
	HTTPClient *http.Client
}

// DefaultClientOptions returns the default options.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		BaseURL:   DefaultBaseURL,
		RateLimit: DefaultRateLimit,
		Timeout:   DefaultTimeout,
	}
}

// NewClient creates a new API client.
func NewClient(options ClientOptions) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	if options.RateLimit == 0 {
		options.RateLimit = DefaultRateLimit
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultTimeout
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: options.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(options.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(options.RateLimit, 1),
		stats:      &ClientStats{},
		backoff:    InitialBackoff,
	}
}

// GetAuctions fetches the auction history of a connected realm.
func (c *Client) GetAuctions(ctx context.Context, connectedRealmID int64) (*AuctionDataset, error) {
	if connectedRealmID <= 0 {
		return nil, &APIError{
			Type:    ErrInvalidParams,
			Message: fmt.Sprintf("invalid connected realm id %d", connectedRealmID),
		}
	}

	var dataset AuctionDataset
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/auctions/%d", c.baseURL, connectedRealmID), &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetData fetches the item catalog and recipes.
func (c *Client) GetData(ctx context.Context) (*Dataset, error) {
	var dataset Dataset
	if err := c.getJSON(ctx, c.baseURL+"/api/data", &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetLastUpdates fetches the last modification time of every connected realm.
func (c *Client) GetLastUpdates(ctx context.Context) ([]LastUpdate, error) {
	var updates []LastUpdate
	if err := c.getJSON(ctx, c.baseURL+"/api/auctions/lastUpdate", &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetLastModified returns when the given connected realm last changed.
func (c *Client) GetLastModified(ctx context.Context, connectedRealmID int64) (time.Time, error) {
	updates, err := c.GetLastUpdates(ctx)
	if err != nil {
		return time.Time{}, err
	}
	for _, u := range updates {
		if u.ID == connectedRealmID {
			return u.LastModified, nil
		}
	}
	return time.Time{}, &APIError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("no update information for connected realm %d", connectedRealmID),
	}
}

func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &APIError{
			Type:    ErrParseError,
			Message: fmt.Sprintf("failed to parse response from %s", url),
			Err:     err,
		}
	}
	return nil
}

// doRequest performs an HTTP request with rate limiting and backoff.
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	// Check backoff
	if err := c.checkBackoff(); err != nil {
		return nil, err
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &APIError{
			Type:    ErrRateLimited,
			Message: "rate limiter error",
			Err:     err,
		}
	}

	c.updateStats(func(s *ClientStats) {
		s.TotalRequests++
		s.LastRequestTime = time.Now()
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &APIError{
			Type:    ErrInvalidParams,
			Message: "failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(startTime)

	if err != nil {
		c.recordFailure()
		return nil, &APIError{
			Type:    ErrUnavailable,
			Message: "failed to execute request",
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		errType := ErrUnavailable
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			errType = ErrRateLimited
		case http.StatusNotFound:
			errType = ErrNotFound
		}
		return nil, &APIError{
			Type:       errType,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status code: %d, body: %s", resp.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, &APIError{
			Type:    ErrUnavailable,
			Message: "failed to read response body",
			Err:     err,
		}
	}

	c.recordSuccess(latency)

	return body, nil
}

// checkBackoff checks if we're in a backoff period.
func (c *Client) checkBackoff() error {
	c.backoffMu.Lock()
	defer c.backoffMu.Unlock()

	if !c.lastFailureTime.IsZero() {
		elapsed := time.Since(c.lastFailureTime)
		if elapsed < c.backoff {
			return &APIError{
				Type:    ErrRateLimited,
				Message: fmt.Sprintf("in backoff period, %v remaining", c.backoff-elapsed),
			}
		}
	}

	return nil
}

// recordFailure records a failed request and increases backoff.
func (c *Client) recordFailure() {
	c.backoffMu.Lock()
	c.lastFailureTime = time.Now()
	c.backoff = time.Duration(float64(c.backoff) * BackoffFactor)
	if c.backoff > MaxBackoff {
		c.backoff = MaxBackoff
	}
	c.backoffMu.Unlock()

	c.updateStats(func(s *ClientStats) {
		s.FailedRequests++
		s.LastFailureTime = time.Now()
		s.ConsecutiveErrors++
	})
}

// recordSuccess records a successful request and resets backoff.
func (c *Client) recordSuccess(latency time.Duration) {
	c.backoffMu.Lock()
	c.backoff = InitialBackoff
	c.lastFailureTime = time.Time{}
	c.backoffMu.Unlock()

	c.updateStats(func(s *ClientStats) {
		s.LastSuccessTime = time.Now()
		s.ConsecutiveErrors = 0

		if s.AverageLatency == 0 {
			s.AverageLatency = latency
		} else {
			s.AverageLatency = (s.AverageLatency + latency) / 2
		}
	})
}

func (c *Client) updateStats(fn func(*ClientStats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(c.stats)
}

// GetStats returns a copy of the current client statistics.
func (c *Client) GetStats() ClientStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return *c.stats
}

// ResetBackoff manually resets the backoff timer.
func (c *Client) ResetBackoff() {
	c.backoffMu.Lock()
	defer c.backoffMu.Unlock()
	c.backoff = InitialBackoff
	c.lastFailureTime = time.Time{}
}
