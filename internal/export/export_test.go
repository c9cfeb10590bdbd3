package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

type testRow struct {
	ID        int       `csv:"id"`
	Name      string    `csv:"name"`
	Value     float64   `csv:"value"`
	Active    bool      `csv:"active"`
	CreatedAt time.Time `csv:"created_at"`
	Pointer   *string   `csv:"pointer"`
	Hidden    string    `csv:"-"`
}

func stringPtr(s string) *string { return &s }

func testRows() []testRow {
	return []testRow{
		{ID: 1, Name: "Test1", Value: 10.5, Active: true, CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Pointer: stringPtr("x"), Hidden: "secret"},
		{ID: 2, Name: "Test2", Value: 20.3, CreatedAt: time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"JSON", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestExportToWriter_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToWriter(&buf, FormatCSV, testRows(), false); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(records))
	}

	wantHeader := "id,name,value,active,created_at,pointer"
	if got := strings.Join(records[0], ","); got != wantHeader {
		t.Errorf("Expected header %q, got %q", wantHeader, got)
	}
	wantRow := "1,Test1,10.50,true,2024-01-01T12:00:00Z,x"
	if got := strings.Join(records[1], ","); got != wantRow {
		t.Errorf("Expected row %q, got %q", wantRow, got)
	}
	if records[2][5] != "" {
		t.Errorf("Expected empty nil pointer, got %q", records[2][5])
	}
}

func TestExportToWriter_NotASlice(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToWriter(&buf, FormatCSV, testRow{}, false); err == nil {
		t.Error("Expected error for non-slice data")
	}
	if err := ExportToWriter(&buf, FormatXLSX, []int{1}, false); err == nil {
		t.Error("Expected error for slice of non-structs")
	}
}

func TestExportToWriter_XLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportToWriter(&buf, FormatXLSX, testRows(), false); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0][1] != "name" || rows[1][1] != "Test1" {
		t.Errorf("Unexpected content %v", rows)
	}
	if rows[2][0] != "2" {
		t.Errorf("Expected numeric id 2, got %q", rows[2][0])
	}
}

func TestExporter_FileAndOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "rows.json")

	exporter := NewExporter(Options{Format: FormatJSON, FilePath: path, PrettyJSON: true})
	if err := exporter.Export(testRows()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export file: %v", err)
	}
	var decoded []map[string]interface{}
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("Expected 2 records, got %d", len(decoded))
	}

	if err := exporter.Export(testRows()); err == nil {
		t.Error("Expected error when file exists and overwrite is off")
	}

	overwrite := NewExporter(Options{Format: FormatCSV, FilePath: path, Overwrite: true})
	if err := overwrite.Export(testRows()); err != nil {
		t.Errorf("Expected overwrite to succeed: %v", err)
	}
}

func TestNewProfitRows(t *testing.T) {
	items := profit.Items{
		1: {Name: "Bolt of Linen Cloth"},
		2: {Name: "Linen Cloth"},
	}
	index := profit.AuctionIndex{
		1: {{ID: 1, Lowest: 500}},
		2: {{ID: 2, Lowest: 100}},
	}
	recipes := profit.Recipes{
		10: {
			Name:       "Bolt of Linen Cloth",
			Profession: "Tailoring",
			Crafts:     &profit.RecipeItem{ID: 1, Quantity: 1},
			Reagents:   []profit.RecipeItem{{ID: 2, Quantity: 2}, {ID: 3, Quantity: 1}},
		},
	}
	opts := profit.DefaultOptions()
	rows := NewProfitRows(profit.Rank(recipes, items, index, opts), opts)

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.Rank != 1 || row.RecipeID != 10 || row.Crafts != "Bolt of Linen Cloth" {
		t.Errorf("Unexpected identity columns %+v", row)
	}
	if row.SellPrice != 500 || row.Cost != 200 {
		t.Errorf("Expected sell 500 and cost 200, got %d and %d", row.SellPrice, row.Cost)
	}
	// floor(500 * 0.95) - 200
	if row.Profit != 275 {
		t.Errorf("Expected profit 275, got %d", row.Profit)
	}
	if row.UnknownCount != 1 || row.UnknownReagents != "#3" {
		t.Errorf("Expected unknown #3, got %d %q", row.UnknownCount, row.UnknownReagents)
	}
	if row.Reagents != "2x Linen Cloth; 1x #3" {
		t.Errorf("Unexpected reagents %q", row.Reagents)
	}
}
