// Package charts renders item price history as interactive HTML charts.
package charts

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ramonehamilton/crafting-profit/internal/money"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

// LabelFormat formats observation times on the x axis.
const LabelFormat = "Jan 2 15:04"

// ErrNoHistory is returned when there is nothing to plot.
var ErrNoHistory = errors.New("no price history")

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title    string   // Chart title, defaults to the item name
	Subtitle string   // Chart subtitle
	Width    string   // Chart width (e.g., "900px")
	Height   string   // Chart height (e.g., "500px")
	Theme    string   // Chart theme
	Colors   []string // Series colors, in series order
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "900px",
		Height: "400px",
		Theme:  "light",
		Colors: []string{"#3e95cd", "#8e5ea2", "#3cba9f", "#c45850"},
	}
}

type priceSeries struct {
	name  string
	price profit.PriceType
}

// Plotted percentiles, on the gold axis.
var priceSeriesList = []priceSeries{
	{"Lowest", profit.Lowest},
	{"First quartile", profit.FirstQuartile},
	{"Second quartile", profit.SecondQuartile},
}

// RenderPriceHistory writes an HTML line chart of observations to w. Prices
// are plotted in gold on the left axis and quantity on the right axis.
func RenderPriceHistory(w io.Writer, name string, observations []profit.AuctionObservation, config ChartConfig) error {
	if len(observations) == 0 {
		return ErrNoHistory
	}

	title := config.Title
	if title == "" {
		title = name
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     config.Width,
			Height:    config.Height,
			Theme:     config.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: config.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Top:  "bottom",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "Gold",
			Type: "value",
		}),
		charts.WithColorsOpts(opts.Colors(config.Colors)),
	)
	line.ExtendYAxis(opts.YAxis{
		Name:     "Quantity",
		Type:     "value",
		Position: "right",
		SplitLine: &opts.SplitLine{
			Show: opts.Bool(false),
		},
	})

	line.SetXAxis(Labels(observations))

	for _, s := range priceSeriesList {
		line.AddSeries(s.name, goldSeries(observations, s.price),
			charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 0}),
		)
	}
	line.AddSeries("Quantity", quantitySeries(observations),
		charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}),
	)

	line.SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{
			Show: opts.Bool(false),
		}),
	)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// Labels returns the x axis labels of observations.
func Labels(observations []profit.AuctionObservation) []string {
	labels := make([]string, len(observations))
	for i, o := range observations {
		labels[i] = o.LastUpdate.Format(LabelFormat)
	}
	return labels
}

func goldSeries(observations []profit.AuctionObservation, p profit.PriceType) []opts.LineData {
	data := make([]opts.LineData, len(observations))
	for i, o := range observations {
		data[i] = opts.LineData{Value: ToGold(o.Price(p))}
	}
	return data
}

func quantitySeries(observations []profit.AuctionObservation) []opts.LineData {
	data := make([]opts.LineData, len(observations))
	for i, o := range observations {
		data[i] = opts.LineData{Value: o.Quantity}
	}
	return data
}

// ToGold converts copper to fractional gold for plotting.
func ToGold(copper int64) float64 {
	return float64(copper) / money.CopperPerGold
}
