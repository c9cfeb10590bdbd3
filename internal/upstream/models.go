package upstream

import (
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

// AuctionDataset is the auction history of one connected realm.
type AuctionDataset struct {
	LastModified time.Time                   `json:"lastModified"`
	Auctions     []profit.AuctionObservation `json:"auctions"`
}

// Dataset is the static game data: the item catalog and all recipes.
type Dataset struct {
	Items   profit.Items   `json:"items"`
	Recipes profit.Recipes `json:"recipes"`
}

// LastUpdate reports when a connected realm's auction data last changed.
type LastUpdate struct {
	ID           int64     `json:"id"`
	LastModified time.Time `json:"lastModified"`
}

// ClientStats tracks upstream API client statistics.
type ClientStats struct {
	TotalRequests     int           `json:"totalRequests"`
	FailedRequests    int           `json:"failedRequests"`
	AverageLatency    time.Duration `json:"averageLatency"`
	LastRequestTime   time.Time     `json:"lastRequestTime"`
	LastSuccessTime   time.Time     `json:"lastSuccessTime"`
	LastFailureTime   time.Time     `json:"lastFailureTime"`
	ConsecutiveErrors int           `json:"consecutiveErrors"`
}

// Error types for the upstream API
const (
	ErrRateLimited   = "rate_limited"
	ErrUnavailable   = "unavailable"
	ErrInvalidParams = "invalid_params"
	ErrParseError    = "parse_error"
	ErrNotFound      = "not_found"
)

// APIError represents an error from the upstream API.
type APIError struct {
	Type       string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
