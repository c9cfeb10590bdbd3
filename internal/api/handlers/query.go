package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/crafting-profit/internal/api/response"
	"github.com/ramonehamilton/crafting-profit/internal/filters"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
)

// Query parameters shared by the profit endpoints and the dashboard.
const (
	paramCraftsPrice = "craftsPrice"
	paramCostPrice   = "costPrice"
	paramName        = "name"
	paramProfession  = "profession"
)

// optionsFromQuery overlays craftsPrice and costPrice from the query string
// on base. Missing or empty parameters keep the base values.
func optionsFromQuery(r *http.Request, base profit.Options) (profit.Options, error) {
	opts := base
	q := r.URL.Query()

	if v := q.Get(paramCraftsPrice); v != "" {
		p, err := profit.ParsePriceType(v)
		if err != nil {
			return base, fmt.Errorf("%s: %w", paramCraftsPrice, err)
		}
		opts.CraftsPrice = p
	}
	if v := q.Get(paramCostPrice); v != "" {
		p, err := profit.ParsePriceType(v)
		if err != nil {
			return base, fmt.Errorf("%s: %w", paramCostPrice, err)
		}
		opts.CostPrice = p
	}
	return opts, nil
}

// criteriaFromQuery reads the name filter and repeated profession parameters.
func criteriaFromQuery(r *http.Request) filters.Criteria {
	q := r.URL.Query()
	var professions []string
	for _, p := range q[paramProfession] {
		if p != "" {
			professions = append(professions, p)
		}
	}
	return filters.Criteria{
		Name:        q.Get(paramName),
		Professions: professions,
	}
}

// itemIDParam parses the {itemID} path parameter.
func itemIDParam(r *http.Request) (profit.ItemID, error) {
	raw := chi.URLParam(r, "itemID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id: %q", raw)
	}
	return profit.ItemID(id), nil
}

// writeNoData answers requests that arrive before any data was loaded.
func writeNoData(w http.ResponseWriter, err error) {
	if errors.Is(err, refresh.ErrNoData) {
		response.ServiceUnavailable(w, err)
		return
	}
	response.InternalError(w, err)
}
