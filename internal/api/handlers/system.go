package handlers

import (
	"net/http"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/api/response"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
	"github.com/ramonehamilton/crafting-profit/internal/upstream"
	"github.com/ramonehamilton/crafting-profit/internal/version"
	"github.com/ramonehamilton/crafting-profit/internal/view"
)

// UpstreamStats reports upstream client statistics.
type UpstreamStats interface {
	GetStats() upstream.ClientStats
}

// SystemHandler handles status, refresh and version requests.
type SystemHandler struct {
	refresher *refresh.Refresher
	upstream  UpstreamStats
}

// NewSystemHandler creates a new SystemHandler. upstream may be nil.
func NewSystemHandler(refresher *refresh.Refresher, upstream UpstreamStats) *SystemHandler {
	return &SystemHandler{refresher: refresher, upstream: upstream}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	refresh.Status
	Updated  string                `json:"updated"`
	Upstream *upstream.ClientStats `json:"upstream,omitempty"`
}

// GetStatus returns data freshness and refresh state.
func (h *SystemHandler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	status := h.refresher.Status()
	resp := StatusResponse{
		Status:  status,
		Updated: view.Age(status.LastModified, time.Now()),
	}
	if h.upstream != nil {
		stats := h.upstream.GetStats()
		resp.Upstream = &stats
	}
	response.Success(w, resp)
}

// RefreshResponse is the body of POST /refresh.
type RefreshResponse struct {
	RunID        string    `json:"runId"`
	LastModified time.Time `json:"lastModified"`
	Recipes      int       `json:"recipes"`
}

// Refresh fetches and ranks new data. The previous ranking stays in place
// when upstream fails.
func (h *SystemHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.refresher.Refresh(r.Context())
	if err != nil {
		response.BadGateway(w, err)
		return
	}
	response.Success(w, RefreshResponse{
		RunID:        snap.RunID,
		LastModified: snap.LastModified,
		Recipes:      len(snap.Records),
	})
}

// GetVersion returns the application version.
func (h *SystemHandler) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, version.GetInfo())
}
