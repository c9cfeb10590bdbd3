// Package profit computes per-recipe crafting profit from recipe, item and
// auction data and ranks the results.
//
// Everything in this package is a pure function of its inputs. Callers own
// the pricing options and any cached results.
package profit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ItemID identifies an item in the catalog.
type ItemID int64

// RecipeID identifies a recipe.
type RecipeID int64

// ErrUnknownPriceType is returned when a price type name cannot be parsed.
var ErrUnknownPriceType = errors.New("unknown price type")

// PriceType selects one of the price statistics sampled per auction observation.
type PriceType int

const (
	Lowest PriceType = iota
	FarOut
	Outlier
	Mean
	FirstQuartile
	SecondQuartile
	ThirdQuartile

	numPriceTypes = int(ThirdQuartile) + 1
)

var priceTypeNames = [numPriceTypes]string{
	"lowest",
	"farOut",
	"outlier",
	"mean",
	"firstQuartile",
	"secondQuartile",
	"thirdQuartile",
}

// PriceTypes returns every price type in declaration order.
func PriceTypes() []PriceType {
	types := make([]PriceType, numPriceTypes)
	for i := range types {
		types[i] = PriceType(i)
	}
	return types
}

// Valid reports whether p is one of the seven known price types.
func (p PriceType) Valid() bool {
	return p >= 0 && int(p) < numPriceTypes
}

func (p PriceType) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PriceType(%d)", int(p))
	}
	return priceTypeNames[p]
}

// ParsePriceType parses the camelCase name of a price type.
func ParsePriceType(s string) (PriceType, error) {
	for i, name := range priceTypeNames {
		if name == s {
			return PriceType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriceType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p PriceType) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriceType, int(p))
	}
	return []byte(priceTypeNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PriceType) UnmarshalText(text []byte) error {
	parsed, err := ParsePriceType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Item is a catalog entry.
type Item struct {
	Name    string    `json:"name"`
	Icon    string    `json:"icon"`
	Price   *int64    `json:"price,omitempty"` // vendor price in copper, absent if not sold by vendors
	Updated time.Time `json:"updated"`
}

// VendorPrice returns the vendor price and whether one is present.
func (i *Item) VendorPrice() (int64, bool) {
	if i == nil || i.Price == nil {
		return 0, false
	}
	return *i.Price, true
}

// Items is the item catalog keyed by id.
type Items map[ItemID]Item

// Lookup returns the item for id, or nil and false when the catalog has no entry.
func (items Items) Lookup(id ItemID) (*Item, bool) {
	item, ok := items[id]
	if !ok {
		return nil, false
	}
	return &item, true
}

// RecipeItem is an item id paired with a quantity.
type RecipeItem struct {
	ID       ItemID `json:"id"`
	Quantity int64  `json:"quantity"`
}

// Recipe is a craftable definition.
type Recipe struct {
	Name       string       `json:"name"`
	Icon       string       `json:"icon"`
	Profession string       `json:"profession"`
	Crafts     *RecipeItem  `json:"crafts,omitempty"`
	Reagents   []RecipeItem `json:"reagents"`
}

// Recipes is the recipe dataset keyed by id.
type Recipes map[RecipeID]Recipe

// Lookup returns the recipe for id, or nil and false when it does not exist.
func (recipes Recipes) Lookup(id RecipeID) (*Recipe, bool) {
	recipe, ok := recipes[id]
	if !ok {
		return nil, false
	}
	return &recipe, true
}

// AuctionObservation is one sampled market snapshot for an item.
type AuctionObservation struct {
	ID             ItemID    `json:"id"`
	Quantity       int64     `json:"quantity"`
	LastUpdate     time.Time `json:"lastUpdate"`
	Lowest         int64     `json:"lowest"`
	FarOut         int64     `json:"farOut"`
	Outlier        int64     `json:"outlier"`
	Mean           int64     `json:"mean"`
	FirstQuartile  int64     `json:"firstQuartile"`
	SecondQuartile int64     `json:"secondQuartile"`
	ThirdQuartile  int64     `json:"thirdQuartile"`
}

// Price returns the observation's value for the given price type.
func (a *AuctionObservation) Price(p PriceType) int64 {
	switch p {
	case Lowest:
		return a.Lowest
	case FarOut:
		return a.FarOut
	case Outlier:
		return a.Outlier
	case Mean:
		return a.Mean
	case FirstQuartile:
		return a.FirstQuartile
	case SecondQuartile:
		return a.SecondQuartile
	case ThirdQuartile:
		return a.ThirdQuartile
	}
	return 0
}

// AuctionIndex maps an item to its observation history, oldest first.
type AuctionIndex map[ItemID][]AuctionObservation

// CostInfo is the resolution of one recipe item against the catalog and auction data.
type CostInfo struct {
	ItemID   ItemID               `json:"itemId"`
	Item     *Item                `json:"item,omitempty"`
	Auctions []AuctionObservation `json:"auctions"`
	Quantity int64                `json:"quantity"`
}

// LatestPrice returns the most recent auction price for p, or 0 without history.
func (c *CostInfo) LatestPrice(p PriceType) int64 {
	if c == nil || len(c.Auctions) == 0 {
		return 0
	}
	return c.Auctions[len(c.Auctions)-1].Price(p)
}

// AuctionSum holds one running total per price type.
type AuctionSum [numPriceTypes]int64

// Get returns the total for p.
func (s AuctionSum) Get(p PriceType) int64 {
	if !p.Valid() {
		return 0
	}
	return s[p]
}

// MarshalJSON encodes the sum as an object keyed by price type name.
func (s AuctionSum) MarshalJSON() ([]byte, error) {
	m := make(map[string]int64, numPriceTypes)
	for i, name := range priceTypeNames {
		m[name] = s[i]
	}
	return json.Marshal(m)
}

// Cost is the aggregated reagent cost of a recipe.
type Cost struct {
	AuctionSum AuctionSum  `json:"auctionSum"`
	Reagents   []*CostInfo `json:"reagents"`
	Unknown    []*CostInfo `json:"unknown"`
}

// Record is the profit estimate for one recipe.
type Record struct {
	ID         RecipeID  `json:"id"`
	Name       string    `json:"name"`
	Icon       string    `json:"icon"`
	Profession string    `json:"profession"`
	Crafts     *CostInfo `json:"crafts,omitempty"`
	Cost       Cost      `json:"cost"`

	// Profit is the net profit under the options the record was ranked with.
	Profit int64 `json:"profit"`
}

// UnknownCount returns the number of reagents without a resolvable cost.
func (r *Record) UnknownCount() int {
	return len(r.Cost.Unknown)
}
