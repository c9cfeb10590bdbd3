package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/filters"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"priceTypes": profit.PriceTypes,
	"hasProfession": func(selected []string, p string) bool {
		if len(selected) == 0 {
			return true
		}
		for _, s := range selected {
			if s == p {
				return true
			}
		}
		return false
	},
}).ParseFS(templatesFS, "templates/dashboard.html"))

// Page is everything the dashboard template needs.
type Page struct {
	Rows        []Row
	Empty       bool
	Professions []string
	Criteria    filters.Criteria
	Options     profit.Options
	Theme       string

	// Updated is a human readable age of the auction data, e.g. "5 minutes ago".
	Updated         string
	UpdateAvailable bool
	DataFailed      bool
	Version         string
}

// ValidateTheme accepts the themes the page can load: empty for the built-in
// stylesheet, or an absolute http(s) URL of a .css file.
func ValidateTheme(theme string) error {
	if theme == "" {
		return nil
	}
	u, err := url.Parse(theme)
	if err != nil {
		return fmt.Errorf("invalid theme url %q: %w", theme, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("theme must be an http or https stylesheet url: %q", theme)
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), ".css") {
		return fmt.Errorf("theme must point to a .css file: %q", theme)
	}
	return nil
}

// RenderPage writes the dashboard HTML.
func RenderPage(w io.Writer, page Page) error {
	if err := pageTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

// Age formats the time since lastModified in whole minutes, rounded up, or
// "never" when no data has been loaded.
func Age(lastModified, now time.Time) string {
	if lastModified.IsZero() {
		return "never"
	}
	minutes := int64(math.Ceil(now.Sub(lastModified).Minutes()))
	return fmt.Sprintf("%d minutes ago", minutes)
}
