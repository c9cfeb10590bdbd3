package profit

import "fmt"

// DefaultFeeBasisPoints is the auction house cut deducted from the sell side (5%).
const DefaultFeeBasisPoints int64 = 500

const basisPoints int64 = 10000

// ZeroCostPolicy decides how a reagent whose cost resolves to zero is classified.
type ZeroCostPolicy int

const (
	// ZeroCostUnknown treats every zero lowest-percentile line cost as unknown.
	// Free vendor items are indistinguishable from unpriceable ones.
	ZeroCostUnknown ZeroCostPolicy = iota

	// ZeroCostVendorFree treats a reagent whose item carries an explicit vendor
	// price of 0 as a known, free reagent. Every other zero cost is unknown.
	ZeroCostVendorFree
)

var zeroCostPolicyNames = map[ZeroCostPolicy]string{
	ZeroCostUnknown:    "unknown",
	ZeroCostVendorFree: "vendor_free",
}

func (z ZeroCostPolicy) String() string {
	if name, ok := zeroCostPolicyNames[z]; ok {
		return name
	}
	return fmt.Sprintf("ZeroCostPolicy(%d)", int(z))
}

// ParseZeroCostPolicy parses "unknown" or "vendor_free".
func ParseZeroCostPolicy(s string) (ZeroCostPolicy, error) {
	for policy, name := range zeroCostPolicyNames {
		if name == s {
			return policy, nil
		}
	}
	return 0, fmt.Errorf("unknown zero cost policy %q", s)
}

// Options selects the pricing assumptions of a ranking pass.
type Options struct {
	// CraftsPrice values the crafted output.
	CraftsPrice PriceType `json:"craftsPrice"`

	// CostPrice values the reagents.
	CostPrice PriceType `json:"costPrice"`

	// FeeBasisPoints is the auction house cut on the sell side, in 1/100 of a percent.
	FeeBasisPoints int64 `json:"feeBasisPoints"`

	ZeroCost ZeroCostPolicy `json:"-"`
}

// DefaultOptions values both sides at the lowest price with the standard 5% cut.
func DefaultOptions() Options {
	return Options{
		CraftsPrice:    Lowest,
		CostPrice:      Lowest,
		FeeBasisPoints: DefaultFeeBasisPoints,
		ZeroCost:       ZeroCostUnknown,
	}
}

// Validate checks that both price types are known and the fee is within 0-100%.
func (o Options) Validate() error {
	if !o.CraftsPrice.Valid() {
		return fmt.Errorf("crafts price: %w: %d", ErrUnknownPriceType, int(o.CraftsPrice))
	}
	if !o.CostPrice.Valid() {
		return fmt.Errorf("cost price: %w: %d", ErrUnknownPriceType, int(o.CostPrice))
	}
	if o.FeeBasisPoints < 0 || o.FeeBasisPoints > basisPoints {
		return fmt.Errorf("fee must be between 0 and %d basis points, got %d", basisPoints, o.FeeBasisPoints)
	}
	if _, ok := zeroCostPolicyNames[o.ZeroCost]; !ok {
		return fmt.Errorf("unknown zero cost policy %d", int(o.ZeroCost))
	}
	return nil
}
