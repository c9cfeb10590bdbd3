// Package money formats copper amounts as gold, silver and copper.
package money

import "fmt"

const (
	CopperPerSilver = 100
	CopperPerGold   = 100 * CopperPerSilver
)

// Format renders copper as "Gg Ss Cc", prefixed with "-" for negative amounts.
func Format(copper int64) string {
	sign := ""
	if copper < 0 {
		sign = "-"
		copper = -copper
	}
	gold := copper / CopperPerGold
	copper -= gold * CopperPerGold
	silver := copper / CopperPerSilver
	copper -= silver * CopperPerSilver
	return fmt.Sprintf("%s%dg %ds %dc", sign, gold, silver, copper)
}
