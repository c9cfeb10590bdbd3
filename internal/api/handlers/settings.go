package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ramonehamilton/crafting-profit/internal/api/response"
	"github.com/ramonehamilton/crafting-profit/internal/events"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
	"github.com/ramonehamilton/crafting-profit/internal/storage"
	"github.com/ramonehamilton/crafting-profit/internal/view"
)

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	LoadPreferences(ctx context.Context, defaults storage.Preferences) (storage.Preferences, error)
	SavePreferences(ctx context.Context, p storage.Preferences) error
}

// SettingsHandler handles settings-related API requests.
type SettingsHandler struct {
	refresher  *refresh.Refresher
	store      PreferenceStore
	dispatcher refresh.Dispatcher
	defaults   storage.Preferences
}

// NewSettingsHandler creates a new SettingsHandler. defaults are returned for
// preferences that were never saved. dispatcher may be nil.
func NewSettingsHandler(refresher *refresh.Refresher, store PreferenceStore, dispatcher refresh.Dispatcher, defaults storage.Preferences) *SettingsHandler {
	return &SettingsHandler{
		refresher:  refresher,
		store:      store,
		dispatcher: dispatcher,
		defaults:   defaults,
	}
}

// UpdateSettingsRequest changes any subset of the preferences.
type UpdateSettingsRequest struct {
	Theme            *string `json:"theme"`
	AutomaticRefresh *bool   `json:"automaticRefresh"`
	CraftsPrice      *string `json:"craftsPrice"`
	CostPrice        *string `json:"costPrice"`
}

// GetSettings returns the current preferences.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.store.LoadPreferences(r.Context(), h.defaults)
	if err != nil {
		response.InternalError(w, fmt.Errorf("failed to get settings: %w", err))
		return
	}
	response.Success(w, prefs)
}

// UpdateSettings applies, persists and broadcasts changed preferences. New
// price types re-rank the current data without fetching.
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, fmt.Errorf("invalid request body: %w", err))
		return
	}

	prefs, err := h.store.LoadPreferences(r.Context(), h.defaults)
	if err != nil {
		response.InternalError(w, fmt.Errorf("failed to get settings: %w", err))
		return
	}
	if req.Theme != nil {
		if err := view.ValidateTheme(*req.Theme); err != nil {
			response.BadRequest(w, err)
			return
		}
		prefs.Theme = *req.Theme
	}
	if req.AutomaticRefresh != nil {
		prefs.AutomaticRefresh = *req.AutomaticRefresh
	}
	if req.CraftsPrice != nil {
		prefs.CraftsPrice = *req.CraftsPrice
	}
	if req.CostPrice != nil {
		prefs.CostPrice = *req.CostPrice
	}

	opts, err := pricingOptions(prefs, h.refresher.Options())
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	if err := h.store.SavePreferences(r.Context(), prefs); err != nil {
		response.InternalError(w, fmt.Errorf("failed to save settings: %w", err))
		return
	}
	if err := h.refresher.SetOptions(opts); err != nil {
		response.BadRequest(w, err)
		return
	}
	h.refresher.SetAutomatic(prefs.AutomaticRefresh)

	if h.dispatcher != nil {
		h.dispatcher.Dispatch(events.NewTypedEvent(r.Context(), events.TypeSettingsUpdated, events.SettingsUpdatedEvent{
			CraftsPrice:      prefs.CraftsPrice,
			CostPrice:        prefs.CostPrice,
			Theme:            prefs.Theme,
			AutomaticRefresh: prefs.AutomaticRefresh,
		}))
	}

	response.Success(w, prefs)
}

// pricingOptions replaces the price types of base with the preferred ones.
func pricingOptions(prefs storage.Preferences, base profit.Options) (profit.Options, error) {
	opts := base
	crafts, err := profit.ParsePriceType(prefs.CraftsPrice)
	if err != nil {
		return base, fmt.Errorf("craftsPrice: %w", err)
	}
	cost, err := profit.ParsePriceType(prefs.CostPrice)
	if err != nil {
		return base, fmt.Errorf("costPrice: %w", err)
	}
	opts.CraftsPrice = crafts
	opts.CostPrice = cost
	return opts, nil
}
