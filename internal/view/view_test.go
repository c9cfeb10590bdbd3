package view

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

func vendor(v int64) *int64 { return &v }

func TestIconURL(t *testing.T) {
	if got := IconURL(""); !strings.Contains(got, "inv_misc_questionmark") {
		t.Errorf("Expected question mark icon, got %s", got)
	}
	if got := IconURL("inv_fabric_linen_01"); got != "https://wow.zamimg.com/images/wow/icons/medium/inv_fabric_linen_01.jpg" {
		t.Errorf("Unexpected icon URL %s", got)
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		vendor  int64
		auction int64
		want    string
	}{
		{"", 0, 0, "?"},
		{"Linen Cloth", 0, 0, "Linen Cloth"},
		{"Thread", 50, 0, "Thread\nVendor: 0g 0s 50c"},
		{"Linen Cloth", 0, 12345, "Linen Cloth\nAuction: 1g 23s 45c"},
		{"Salt", 10, 20, "Salt\nVendor: 0g 0s 10c\nAuction: 0g 0s 20c"},
	}
	for _, tt := range tests {
		if got := Title(tt.name, tt.vendor, tt.auction); got != tt.want {
			t.Errorf("Title(%q, %d, %d) = %q, want %q", tt.name, tt.vendor, tt.auction, got, tt.want)
		}
	}
}

func TestNewRow_WithCrafts(t *testing.T) {
	r := &profit.Record{
		ID:         3275,
		Name:       "Bolt of Linen Cloth",
		Profession: "Tailoring",
		Crafts: &profit.CostInfo{
			ItemID:   2996,
			Item:     &profit.Item{Name: "Bolt of Linen Cloth", Icon: "inv_fabric_linen_02", Price: vendor(40)},
			Quantity: 1,
			Auctions: []profit.AuctionObservation{{Lowest: 500}},
		},
		Cost: profit.Cost{
			AuctionSum: profit.AuctionSum{profit.Lowest: 200},
			Reagents: []*profit.CostInfo{
				{ItemID: 2589, Item: &profit.Item{Name: "Linen Cloth"}, Quantity: 2, Auctions: []profit.AuctionObservation{{Lowest: 100}}},
			},
		},
		Profit: 275,
	}

	row := NewRow(r, profit.DefaultOptions())

	if row.Link != "https://www.wowhead.com/spell=3275" {
		t.Errorf("Unexpected link %s", row.Link)
	}
	if row.Crafts.Vendor != 0 {
		t.Errorf("Crafts badge should not show a vendor price, got %d", row.Crafts.Vendor)
	}
	if row.Crafts.Auction != 500 {
		t.Errorf("Expected crafts auction 500, got %d", row.Crafts.Auction)
	}
	if row.ProfitItem != nil {
		t.Error("Expected no profit item when the crafted item has an auction price")
	}
	if !row.ShowProfit {
		t.Error("Expected profit to be shown")
	}
	if row.ProfitText != "0g 2s 75c" {
		t.Errorf("Unexpected profit text %s", row.ProfitText)
	}
	if row.CostTitle != "Cost: 0g 2s 0c" {
		t.Errorf("Unexpected cost title %q", row.CostTitle)
	}
	if len(row.Reagents) != 1 || !row.Reagents[0].HasHistory {
		t.Errorf("Expected one reagent with history, got %+v", row.Reagents)
	}
}

func TestNewRow_WithoutCrafts(t *testing.T) {
	r := &profit.Record{
		ID:   7,
		Name: "Enchant Bracer",
		Icon: "spell_holy_greaterheal",
		Cost: profit.Cost{
			Reagents: []*profit.CostInfo{{ItemID: 10940, Quantity: 1}},
			Unknown:  []*profit.CostInfo{{ItemID: 10940, Quantity: 1}},
		},
	}

	row := NewRow(r, profit.DefaultOptions())

	if row.Crafts.Name != "Enchant Bracer" || !strings.Contains(row.Crafts.IconURL, "spell_holy_greaterheal") {
		t.Errorf("Expected recipe name and icon for crafts, got %+v", row.Crafts)
	}
	if row.ProfitItem == nil {
		t.Fatal("Expected profit item for a recipe without sellable output")
	}
	if row.ProfitItem.Name != "" {
		t.Errorf("Profit item should not borrow the recipe name, got %q", row.ProfitItem.Name)
	}
	if row.ShowProfit {
		t.Error("Profit should be hidden when neither sell price nor cost is known")
	}
	if row.CostTitle != "" {
		t.Errorf("Expected empty cost title, got %q", row.CostTitle)
	}
	if row.UnknownCount != 1 || len(row.Unknown) != 1 {
		t.Errorf("Expected one unknown reagent, got %d", row.UnknownCount)
	}
}

func TestNewRow_CostTitleWithUnknown(t *testing.T) {
	r := &profit.Record{
		Cost: profit.Cost{
			AuctionSum: profit.AuctionSum{profit.Lowest: 10000},
			Unknown:    []*profit.CostInfo{{ItemID: 1}},
		},
	}
	row := NewRow(r, profit.DefaultOptions())
	if row.CostTitle != "Cost: 1g 0s 0c + unknown" {
		t.Errorf("Unexpected cost title %q", row.CostTitle)
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := Age(time.Time{}, now); got != "never" {
		t.Errorf("Age(zero) = %q, want never", got)
	}
	if got := Age(now.Add(-90*time.Second), now); got != "2 minutes ago" {
		t.Errorf("Age(90s) = %q, want 2 minutes ago", got)
	}
}

func TestRenderPage(t *testing.T) {
	rows := []Row{{ID: 1, Name: "Copper Bar", Link: "https://www.wowhead.com/spell=1", Profession: "Mining", ProfitText: "0g 0s 5c", ShowProfit: true}}
	var buf bytes.Buffer

	err := RenderPage(&buf, Page{
		Rows:        rows,
		Professions: []string{"Mining"},
		Options:     profit.DefaultOptions(),
		Updated:     "3 minutes ago",
	})
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"Copper Bar", "0g 0s 5c", "3 minutes ago", `value="secondQuartile"`} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestValidateTheme(t *testing.T) {
	tests := []struct {
		theme string
		valid bool
	}{
		{"", true},
		{"https://cdn.jsdelivr.net/npm/bulmaswatch@0.8.1/darkly/bulmaswatch.min.css", true},
		{"http://localhost:9000/theme.CSS", true},
		{"dark.css", false},
		{"javascript:alert(1)", false},
		{"https://example.test/theme.js", false},
		{"ftp://example.test/theme.css", false},
		{"https:///theme.css", false},
	}

	for _, tt := range tests {
		err := ValidateTheme(tt.theme)
		if tt.valid && err != nil {
			t.Errorf("ValidateTheme(%q) unexpected error: %v", tt.theme, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateTheme(%q) expected an error", tt.theme)
		}
	}
}
