package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/api/response"
	"github.com/ramonehamilton/crafting-profit/internal/export"
	"github.com/ramonehamilton/crafting-profit/internal/filters"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
	"github.com/ramonehamilton/crafting-profit/internal/view"
)

// ProfitsHandler serves the ranked profit list.
type ProfitsHandler struct {
	refresher *refresh.Refresher
}

// NewProfitsHandler creates a new ProfitsHandler.
func NewProfitsHandler(refresher *refresh.Refresher) *ProfitsHandler {
	return &ProfitsHandler{refresher: refresher}
}

// ProfitsResponse is the body of GET /profits.
type ProfitsResponse struct {
	RunID        string           `json:"runId"`
	LastModified time.Time        `json:"lastModified"`
	Options      profit.Options   `json:"options"`
	Criteria     filters.Criteria `json:"criteria"`
	Professions  []string         `json:"professions"`
	Rows         []view.Row       `json:"rows"`
	Empty        bool             `json:"empty"`
}

// GetProfits returns the ranked, filtered rows.
func (h *ProfitsHandler) GetProfits(w http.ResponseWriter, r *http.Request) {
	opts, err := optionsFromQuery(r, h.refresher.Options())
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	criteria := criteriaFromQuery(r)

	records, snap, err := h.refresher.Records(opts)
	if err != nil {
		writeNoData(w, err)
		return
	}

	result := filters.Apply(records, criteria)
	response.Success(w, ProfitsResponse{
		RunID:        snap.RunID,
		LastModified: snap.LastModified,
		Options:      opts,
		Criteria:     criteria,
		Professions:  filters.Professions(records),
		Rows:         view.NewRows(result.Records, opts),
		Empty:        result.Empty,
	})
}

// ExportProfits downloads the filtered rows as CSV, JSON or XLSX.
func (h *ProfitsHandler) ExportProfits(w http.ResponseWriter, r *http.Request) {
	format := export.FormatCSV
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			response.BadRequest(w, err)
			return
		}
		format = f
	}

	opts, err := optionsFromQuery(r, h.refresher.Options())
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	criteria := criteriaFromQuery(r)

	records, _, err := h.refresher.Records(opts)
	if err != nil {
		writeNoData(w, err)
		return
	}

	rows := export.NewProfitRows(filters.Apply(records, criteria).Records, opts)

	var buf bytes.Buffer
	if err := export.ExportToWriter(&buf, format, rows, true); err != nil {
		response.InternalError(w, fmt.Errorf("failed to export profits: %w", err))
		return
	}

	response.Attachment(w, format.ContentType(), export.GenerateFilename("profits", format), buf.Bytes())
}

// GetProfessions returns the distinct professions of the current ranking.
func (h *ProfitsHandler) GetProfessions(w http.ResponseWriter, _ *http.Request) {
	snap, err := h.refresher.Current()
	if err != nil {
		writeNoData(w, err)
		return
	}
	response.Success(w, filters.Professions(snap.Records))
}
