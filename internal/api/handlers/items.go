package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/ramonehamilton/crafting-profit/internal/api/response"
	"github.com/ramonehamilton/crafting-profit/internal/charts"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
)

// ItemsHandler serves per-item auction history.
type ItemsHandler struct {
	refresher *refresh.Refresher
	chart     charts.ChartConfig
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(refresher *refresh.Refresher, chart charts.ChartConfig) *ItemsHandler {
	return &ItemsHandler{refresher: refresher, chart: chart}
}

// ItemHistory is the body of GET /items/{itemID}/history.
type ItemHistory struct {
	ID           profit.ItemID               `json:"id"`
	Name         string                      `json:"name"`
	Icon         string                      `json:"icon"`
	Vendor       *int64                      `json:"vendor,omitempty"`
	Observations []profit.AuctionObservation `json:"observations"`
}

func (h *ItemsHandler) history(w http.ResponseWriter, r *http.Request) (*ItemHistory, bool) {
	id, err := itemIDParam(r)
	if err != nil {
		response.BadRequest(w, err)
		return nil, false
	}

	snap, err := h.refresher.Current()
	if err != nil {
		writeNoData(w, err)
		return nil, false
	}

	item, known := snap.Items.Lookup(id)
	observations := snap.Auctions[id]
	if !known && len(observations) == 0 {
		response.NotFound(w, fmt.Errorf("item not found: %d", id))
		return nil, false
	}

	history := &ItemHistory{ID: id, Observations: observations}
	if history.Observations == nil {
		history.Observations = []profit.AuctionObservation{}
	}
	if known {
		history.Name = item.Name
		history.Icon = item.Icon
		history.Vendor = item.Price
	}
	return history, true
}

// GetHistory returns the auction observations of an item, oldest first.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	history, ok := h.history(w, r)
	if !ok {
		return
	}
	response.Success(w, history)
}

// GetChart renders the price history of an item as an HTML chart.
func (h *ItemsHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	history, ok := h.history(w, r)
	if !ok {
		return
	}

	name := history.Name
	if name == "" {
		name = fmt.Sprintf("Item %d", history.ID)
	}

	var buf bytes.Buffer
	if err := charts.RenderPriceHistory(&buf, name, history.Observations, h.chart); err != nil {
		if errors.Is(err, charts.ErrNoHistory) {
			response.NotFound(w, fmt.Errorf("no price history for item %d", history.ID))
			return
		}
		response.InternalError(w, fmt.Errorf("failed to render chart: %w", err))
		return
	}

	response.HTML(w, buf.Bytes())
}
