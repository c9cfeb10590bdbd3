// Package main ranks recipes once and prints the result, from saved JSON
// files or straight from the upstream API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/export"
	"github.com/ramonehamilton/crafting-profit/internal/filters"
	"github.com/ramonehamilton/crafting-profit/internal/money"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/upstream"
)

var (
	dataFile     = flag.String("data", "", "Item and recipe dataset (JSON, as served by /api/data)")
	auctionsFile = flag.String("auctions", "", "Auction dataset (JSON, as served by /api/auctions/{id})")
	fetch        = flag.Bool("fetch", false, "Fetch both datasets from the API instead of files")
	baseURL      = flag.String("base-url", upstream.DefaultBaseURL, "API base URL used with -fetch")
	realm        = flag.Int64("realm", 1084, "Connected realm id used with -fetch")

	craftsPrice = flag.String("crafts-price", "lowest", "Price type of the crafted item")
	costPrice   = flag.String("cost-price", "lowest", "Price type of the reagents")
	fee         = flag.Int64("fee", profit.DefaultFeeBasisPoints, "Auction house cut in basis points")
	zeroCost    = flag.String("zero-cost", "unknown", "Zero cost policy: unknown or vendor_free")

	name        = flag.String("name", "", "Filter by name (case-insensitive regular expression)")
	professions = flag.String("profession", "", "Comma separated professions to show")
	limit       = flag.Int("limit", 25, "Rows to print, 0 for all")

	exportPath   = flag.String("export", "", "Write the filtered ranking to this file")
	exportFormat = flag.String("format", "", "Export format: csv, json or xlsx (default: file extension)")
	overwrite    = flag.Bool("overwrite", false, "Overwrite an existing export file")
)

func main() {
	flag.Parse()

	opts, err := parseOptions()
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	auctions, data, err := loadDatasets()
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}

	records := profit.CalculateProfits(data.Recipes, data.Items, auctions.Auctions, opts)
	result := filters.Apply(records, filters.Criteria{
		Name:        *name,
		Professions: splitList(*professions),
	})

	displayRanking(result, opts, auctions.LastModified)

	if *exportPath != "" {
		if err := exportRanking(result.Records, opts); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("\nExported %d recipes to %s\n", len(result.Records), *exportPath)
	}
}

func parseOptions() (profit.Options, error) {
	crafts, err := profit.ParsePriceType(*craftsPrice)
	if err != nil {
		return profit.Options{}, fmt.Errorf("crafts price: %w", err)
	}
	cost, err := profit.ParsePriceType(*costPrice)
	if err != nil {
		return profit.Options{}, fmt.Errorf("cost price: %w", err)
	}
	policy, err := profit.ParseZeroCostPolicy(*zeroCost)
	if err != nil {
		return profit.Options{}, err
	}
	opts := profit.Options{
		CraftsPrice:    crafts,
		CostPrice:      cost,
		FeeBasisPoints: *fee,
		ZeroCost:       policy,
	}
	return opts, opts.Validate()
}

func loadDatasets() (*upstream.AuctionDataset, *upstream.Dataset, error) {
	if *fetch {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		client := upstream.NewClient(upstream.ClientOptions{BaseURL: *baseURL})
		auctions, err := client.GetAuctions(ctx, *realm)
		if err != nil {
			return nil, nil, err
		}
		data, err := client.GetData(ctx)
		if err != nil {
			return nil, nil, err
		}
		return auctions, data, nil
	}

	if *dataFile == "" || *auctionsFile == "" {
		return nil, nil, fmt.Errorf("-data and -auctions are required without -fetch")
	}
	var auctions upstream.AuctionDataset
	if err := readJSON(*auctionsFile, &auctions); err != nil {
		return nil, nil, err
	}
	var data upstream.Dataset
	if err := readJSON(*dataFile, &data); err != nil {
		return nil, nil, err
	}
	return &auctions, &data, nil
}

func readJSON(path string, target interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// displayRanking prints the filtered ranking.
func displayRanking(result filters.Result, opts profit.Options, lastModified time.Time) {
	fmt.Printf("\nRecipe Profits (crafts: %s, cost: %s)\n", opts.CraftsPrice, opts.CostPrice)
	fmt.Println("=====================================")
	if !lastModified.IsZero() {
		fmt.Printf("Auction data from %s\n", lastModified.Local().Format("2006-01-02 15:04"))
	}

	if result.Empty {
		fmt.Println("No recipes match the filters.")
		return
	}

	fmt.Println()
	fmt.Printf("%-4s %-40s %-16s %14s  %s\n", "#", "Recipe", "Profession", "Profit", "Unknown")
	fmt.Println(strings.Repeat("-", 90))

	rows := export.NewProfitRows(result.Records, opts)
	for i, row := range rows {
		if *limit > 0 && i >= *limit {
			fmt.Printf("... %d more\n", len(rows)-i)
			break
		}
		unknown := ""
		if row.UnknownCount > 0 {
			unknown = row.UnknownReagents
		}
		fmt.Printf("%-4d %-40s %-16s %14s  %s\n",
			row.Rank, truncate(row.Recipe, 40), truncate(row.Profession, 16), money.Format(row.Profit), unknown)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func exportRanking(records []*profit.Record, opts profit.Options) error {
	format := export.Format(strings.TrimPrefix(filepath.Ext(*exportPath), "."))
	if *exportFormat != "" {
		format = export.Format(*exportFormat)
	}
	format, err := export.ParseFormat(string(format))
	if err != nil {
		return err
	}

	exporter := export.NewExporter(export.Options{
		Format:     format,
		FilePath:   *exportPath,
		PrettyJSON: true,
		Overwrite:  *overwrite,
	})
	return exporter.Export(export.NewProfitRows(records, opts))
}
