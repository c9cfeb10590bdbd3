// Package view maps ranked profit records to display rows and renders the
// dashboard page.
package view

import (
	"fmt"

	"github.com/ramonehamilton/crafting-profit/internal/money"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

const (
	recipeURLFormat = "https://www.wowhead.com/spell=%d"
	iconURLFormat   = "https://wow.zamimg.com/images/wow/icons/medium/%s.jpg"
	defaultIcon     = "inv_misc_questionmark"
)

// ItemView is one item badge: icon, quantity and a hover title with prices.
type ItemView struct {
	ID       profit.ItemID `json:"id"`
	Name     string        `json:"name"`
	IconURL  string        `json:"iconUrl"`
	Quantity int64         `json:"quantity"`
	Vendor   int64         `json:"vendor"`
	Auction  int64         `json:"auction"`
	Title    string        `json:"title"`

	// HasHistory is true when a price history chart can be shown.
	HasHistory bool `json:"hasHistory"`
}

// Row is the display form of a profit record.
type Row struct {
	ID         profit.RecipeID `json:"id"`
	Name       string          `json:"name"`
	Link       string          `json:"link"`
	Profession string          `json:"profession"`
	Crafts     ItemView        `json:"crafts"`
	Reagents   []ItemView      `json:"reagents"`

	// ProfitItem is shown next to the profit when the crafted item has no
	// auction price, so the user can see what could not be valued.
	ProfitItem *ItemView `json:"profitItem,omitempty"`

	Profit       int64      `json:"profit"`
	ProfitText   string     `json:"profitText"`
	ShowProfit   bool       `json:"showProfit"`
	CostTitle    string     `json:"costTitle"`
	Unknown      []ItemView `json:"unknown"`
	UnknownCount int        `json:"unknownCount"`
}

// IconURL returns the icon image URL, using a question mark for empty icons.
func IconURL(icon string) string {
	if icon == "" {
		icon = defaultIcon
	}
	return fmt.Sprintf(iconURLFormat, icon)
}

// Title builds the hover text of an item badge.
func Title(name string, vendor, auction int64) string {
	if name == "" {
		name = "?"
	}
	title := name
	if vendor != 0 {
		title += "\nVendor: " + money.Format(vendor)
	}
	if auction != 0 {
		title += "\nAuction: " + money.Format(auction)
	}
	return title
}

func itemView(info *profit.CostInfo, p profit.PriceType) ItemView {
	v := ItemView{
		ID:         info.ItemID,
		Quantity:   info.Quantity,
		Auction:    info.LatestPrice(p),
		HasHistory: len(info.Auctions) > 0,
	}
	if info.Item != nil {
		v.Name = info.Item.Name
		v.IconURL = IconURL(info.Item.Icon)
		v.Vendor, _ = info.Item.VendorPrice()
	} else {
		v.IconURL = IconURL("")
	}
	v.Title = Title(v.Name, v.Vendor, v.Auction)
	return v
}

func itemViews(infos []*profit.CostInfo, p profit.PriceType) []ItemView {
	out := make([]ItemView, len(infos))
	for i, info := range infos {
		out[i] = itemView(info, p)
	}
	return out
}

// craftsView describes the crafted item. Recipes that craft nothing show the
// recipe's own name and icon when useRecipe is set.
func craftsView(r *profit.Record, p profit.PriceType, useRecipe bool) ItemView {
	if r.Crafts != nil {
		return itemView(r.Crafts, p)
	}
	v := ItemView{Quantity: 1, IconURL: IconURL("")}
	if useRecipe {
		v.Name = r.Name
		v.IconURL = IconURL(r.Icon)
	}
	v.Title = Title(v.Name, 0, 0)
	return v
}

// NewRow converts a record ranked with opts into a display row.
func NewRow(r *profit.Record, opts profit.Options) Row {
	row := Row{
		ID:           r.ID,
		Name:         r.Name,
		Link:         fmt.Sprintf(recipeURLFormat, r.ID),
		Profession:   r.Profession,
		Crafts:       craftsView(r, opts.CraftsPrice, true),
		Reagents:     itemViews(r.Cost.Reagents, opts.CostPrice),
		Unknown:      itemViews(r.Cost.Unknown, opts.CostPrice),
		UnknownCount: r.UnknownCount(),
		Profit:       r.Profit,
		ProfitText:   money.Format(r.Profit),
	}
	// The profit badge never shows a vendor price for the crafted item.
	row.Crafts.Vendor = 0
	row.Crafts.Title = Title(row.Crafts.Name, 0, row.Crafts.Auction)

	craftsPrice := r.Crafts.LatestPrice(opts.CraftsPrice)
	if craftsPrice == 0 {
		item := craftsView(r, opts.CraftsPrice, false)
		item.Vendor = 0
		item.Title = Title(item.Name, 0, item.Auction)
		row.ProfitItem = &item
	}

	cost := r.Cost.AuctionSum.Get(opts.CostPrice)
	row.ShowProfit = craftsPrice != 0 || cost != 0
	if cost != 0 {
		row.CostTitle = "Cost: " + money.Format(cost)
		if row.UnknownCount > 0 {
			row.CostTitle += " + unknown"
		}
	}
	return row
}

// NewRows converts every record, keeping ranking order.
func NewRows(records []*profit.Record, opts profit.Options) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = NewRow(r, opts)
	}
	return rows
}
