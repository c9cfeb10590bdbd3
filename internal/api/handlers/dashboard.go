package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/api/response"
	"github.com/ramonehamilton/crafting-profit/internal/filters"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
	"github.com/ramonehamilton/crafting-profit/internal/storage"
	"github.com/ramonehamilton/crafting-profit/internal/version"
	"github.com/ramonehamilton/crafting-profit/internal/view"
)

// DashboardHandler renders the HTML dashboard.
type DashboardHandler struct {
	refresher *refresh.Refresher
	store     PreferenceStore
	defaults  storage.Preferences
}

// NewDashboardHandler creates a new DashboardHandler. store may be nil, in
// which case the default theme is always used.
func NewDashboardHandler(refresher *refresh.Refresher, store PreferenceStore, defaults storage.Preferences) *DashboardHandler {
	return &DashboardHandler{refresher: refresher, store: store, defaults: defaults}
}

// ServeHTTP renders the ranking filtered by the query string. Before any data
// was loaded the page is rendered empty.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	opts, err := optionsFromQuery(r, h.refresher.Options())
	if err != nil {
		response.BadRequest(w, err)
		return
	}
	criteria := criteriaFromQuery(r)
	status := h.refresher.Status()

	page := view.Page{
		Criteria:        criteria,
		Options:         opts,
		Theme:           h.theme(r),
		Updated:         view.Age(status.LastModified, time.Now()),
		UpdateAvailable: status.UpdateAvailable,
		DataFailed:      status.DataFailed,
		Version:         version.GetVersion(),
		Empty:           true,
	}

	records, _, err := h.refresher.Records(opts)
	switch {
	case errors.Is(err, refresh.ErrNoData):
	case err != nil:
		response.InternalError(w, err)
		return
	default:
		result := filters.Apply(records, criteria)
		page.Rows = view.NewRows(result.Records, opts)
		page.Empty = result.Empty
		page.Professions = filters.Professions(records)
	}

	var buf bytes.Buffer
	if err := view.RenderPage(&buf, page); err != nil {
		response.InternalError(w, fmt.Errorf("failed to render dashboard: %w", err))
		return
	}

	response.HTML(w, buf.Bytes())
}

func (h *DashboardHandler) theme(r *http.Request) string {
	if h.store == nil {
		return h.defaults.Theme
	}
	prefs, err := h.store.LoadPreferences(r.Context(), h.defaults)
	if err != nil {
		return h.defaults.Theme
	}
	return prefs.Theme
}
