package export

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/crafting-profit/internal/money"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

// ProfitRow is the flat, spreadsheet-friendly form of a ranked record.
// Prices are in copper at the percentiles the ranking used.
type ProfitRow struct {
	Rank            int    `csv:"rank" json:"rank"`
	RecipeID        int64  `csv:"recipe_id" json:"recipeId"`
	Recipe          string `csv:"recipe" json:"recipe"`
	Profession      string `csv:"profession" json:"profession"`
	Crafts          string `csv:"crafts" json:"crafts"`
	CraftsQuantity  int64  `csv:"crafts_quantity" json:"craftsQuantity"`
	SellPrice       int64  `csv:"sell_price" json:"sellPrice"`
	Cost            int64  `csv:"cost" json:"cost"`
	Profit          int64  `csv:"profit" json:"profit"`
	ProfitText      string `csv:"profit_text" json:"profitText"`
	UnknownCount    int    `csv:"unknown_count" json:"unknownCount"`
	UnknownReagents string `csv:"unknown_reagents" json:"unknownReagents"`
	Reagents        string `csv:"reagents" json:"reagents"`
}

// NewProfitRows converts records, keeping ranking order.
func NewProfitRows(records []*profit.Record, opts profit.Options) []ProfitRow {
	rows := make([]ProfitRow, len(records))
	for i, r := range records {
		row := ProfitRow{
			Rank:            i + 1,
			RecipeID:        int64(r.ID),
			Recipe:          r.Name,
			Profession:      r.Profession,
			Cost:            r.Cost.AuctionSum.Get(opts.CostPrice),
			Profit:          r.Profit,
			ProfitText:      money.Format(r.Profit),
			UnknownCount:    r.UnknownCount(),
			UnknownReagents: joinNames(r.Cost.Unknown, false),
			Reagents:        joinNames(r.Cost.Reagents, true),
		}
		if r.Crafts != nil {
			row.Crafts = itemName(r.Crafts)
			row.CraftsQuantity = r.Crafts.Quantity
			row.SellPrice = r.Crafts.LatestPrice(opts.CraftsPrice)
		}
		rows[i] = row
	}
	return rows
}

func itemName(info *profit.CostInfo) string {
	if info.Item != nil && info.Item.Name != "" {
		return info.Item.Name
	}
	return fmt.Sprintf("#%d", info.ItemID)
}

func joinNames(infos []*profit.CostInfo, withQuantity bool) string {
	names := make([]string, len(infos))
	for i, info := range infos {
		if withQuantity {
			names[i] = fmt.Sprintf("%dx %s", info.Quantity, itemName(info))
		} else {
			names[i] = itemName(info)
		}
	}
	return strings.Join(names, "; ")
}
