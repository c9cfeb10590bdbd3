package profit

import (
	"cmp"
	"slices"
)

// IndexAuctions groups a flat observation list by item id. Order within each
// group follows the input, so the last element of a group is the most recent.
func IndexAuctions(auctions []AuctionObservation) AuctionIndex {
	index := make(AuctionIndex)
	for _, auction := range auctions {
		index[auction.ID] = append(index[auction.ID], auction)
	}
	return index
}

// LatestPrice returns price p of the most recent observation for id, or 0
// when the item has no history.
func LatestPrice(id ItemID, index AuctionIndex, p PriceType) int64 {
	history := index[id]
	if len(history) == 0 {
		return 0
	}
	return history[len(history)-1].Price(p)
}

func findCostInfo(ri RecipeItem, items Items, index AuctionIndex) *CostInfo {
	item, _ := items.Lookup(ri.ID)
	return &CostInfo{
		ItemID:   ri.ID,
		Item:     item,
		Auctions: index[ri.ID],
		Quantity: ri.Quantity,
	}
}

// unitCost prefers a non-zero vendor price over the latest auction price.
func unitCost(info *CostInfo, p PriceType) int64 {
	if vendor, ok := info.Item.VendorPrice(); ok && vendor != 0 {
		return vendor
	}
	return info.LatestPrice(p)
}

func isUnknown(info *CostInfo, lowestLine int64, policy ZeroCostPolicy) bool {
	if lowestLine != 0 {
		return false
	}
	if policy == ZeroCostVendorFree {
		if vendor, ok := info.Item.VendorPrice(); ok && vendor == 0 {
			return false
		}
	}
	return true
}

// FindCost resolves every reagent of recipe and sums the line costs of the
// resolvable ones per price type. Reagents keeps one entry per reagent in
// recipe order; Unknown holds the subset whose lowest line cost is zero.
func FindCost(recipe *Recipe, items Items, index AuctionIndex, policy ZeroCostPolicy) Cost {
	cost := Cost{
		Reagents: make([]*CostInfo, 0, len(recipe.Reagents)),
		Unknown:  []*CostInfo{},
	}
	for _, reagent := range recipe.Reagents {
		info := findCostInfo(reagent, items, index)
		cost.Reagents = append(cost.Reagents, info)

		var lines AuctionSum
		for _, p := range PriceTypes() {
			lines[p] = unitCost(info, p) * info.Quantity
		}

		if isUnknown(info, lines[Lowest], policy) {
			cost.Unknown = append(cost.Unknown, info)
			continue
		}
		for p := range lines {
			cost.AuctionSum[p] += lines[p]
		}
	}
	return cost
}

// AuctionProfit returns the profit of r with the standard 5% auction cut.
func AuctionProfit(r *Record, craftsPrice, costPrice PriceType) int64 {
	return NetProfit(r, craftsPrice, costPrice, DefaultFeeBasisPoints)
}

// NetProfit returns floor(sell * (1 - fee)) minus the reagent cost, where sell
// is the latest crafts price times the crafted quantity. Recipes that craft
// nothing have a sell side of zero. The result is negative for a loss.
func NetProfit(r *Record, craftsPrice, costPrice PriceType, feeBasisPoints int64) int64 {
	var sell int64
	if r.Crafts != nil {
		gross := r.Crafts.LatestPrice(craftsPrice) * r.Crafts.Quantity
		sell = floorDiv(gross*(basisPoints-feeBasisPoints), basisPoints)
	}
	return sell - r.Cost.AuctionSum.Get(costPrice)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func calculateProfit(id RecipeID, recipe *Recipe, items Items, index AuctionIndex, opts Options) *Record {
	r := &Record{
		ID:         id,
		Name:       recipe.Name,
		Icon:       recipe.Icon,
		Profession: recipe.Profession,
		Cost:       FindCost(recipe, items, index, opts.ZeroCost),
	}
	if recipe.Crafts != nil {
		r.Crafts = findCostInfo(*recipe.Crafts, items, index)
	}
	r.Profit = NetProfit(r, opts.CraftsPrice, opts.CostPrice, opts.FeeBasisPoints)
	return r
}

// CalculateProfits builds one Record per recipe and orders them by unknown
// reagent count ascending, then profit descending, then recipe id ascending.
func CalculateProfits(recipes Recipes, items Items, auctions []AuctionObservation, opts Options) []*Record {
	return Rank(recipes, items, IndexAuctions(auctions), opts)
}

// Rank is CalculateProfits for callers that already hold an AuctionIndex.
func Rank(recipes Recipes, items Items, index AuctionIndex, opts Options) []*Record {
	records := make([]*Record, 0, len(recipes))
	for id, recipe := range recipes {
		records = append(records, calculateProfit(id, &recipe, items, index, opts))
	}
	slices.SortFunc(records, Compare)
	return records
}

// Compare is the total order used by Rank. Each key is only consulted when
// the previous one ties.
func Compare(a, b *Record) int {
	if c := cmp.Compare(a.UnknownCount(), b.UnknownCount()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Profit, a.Profit); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
