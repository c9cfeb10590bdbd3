package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/view"
)

// EnvPrefix prefixes every environment variable that overrides the config file.
const EnvPrefix = "CRAFTPROFIT_"

// Config represents the application configuration.
type Config struct {
	// Upstream API configuration
	API APIConfig `toml:"api"`

	// Update polling configuration
	Refresh RefreshConfig `toml:"refresh"`

	// Default pricing assumptions
	Pricing PricingConfig `toml:"pricing"`

	// HTTP server configuration
	Server ServerConfig `toml:"server"`

	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// APIConfig contains upstream API settings.
type APIConfig struct {
	BaseURL          string  `toml:"base_url"`           // Crafting profit API base URL
	RealmID          int64   `toml:"realm_id"`           // Realm shown in the UI
	ConnectedRealmID int64   `toml:"connected_realm_id"` // Connected realm whose auctions are fetched
	Timeout          string  `toml:"timeout"`            // Request timeout (e.g., "30s")
	RateLimit        float64 `toml:"rate_limit"`         // Requests per second
}

// RefreshConfig contains update polling settings.
type RefreshConfig struct {
	PollInterval string `toml:"poll_interval"` // How often to check for new auction data (e.g., "60s")
	Automatic    bool   `toml:"automatic"`     // Refresh as soon as new data is available
}

// PricingConfig contains the default percentiles and fee.
type PricingConfig struct {
	CraftsPrice    string `toml:"crafts_price"`     // Percentile used for the crafted item
	CostPrice      string `toml:"cost_price"`       // Percentile used for reagents
	FeeBasisPoints int64  `toml:"fee_basis_points"` // Auction house cut (500 = 5%)
	ZeroCostPolicy string `toml:"zero_cost_policy"` // "unknown" or "vendor_free"
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int  `toml:"port"`
	OpenBrowser bool `toml:"open_browser"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path      string `toml:"path"`      // Empty uses ~/.crafting-profit/data.db
	Retention int    `toml:"retention"` // Snapshots kept per kind
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool   `toml:"debug_mode"` // Enable debug logging
	Theme     string `toml:"theme"`      // Stylesheet URL, empty for the default theme
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:          "https://crafting-profit.herokuapp.com",
			RealmID:          1084,
			ConnectedRealmID: 1084,
			Timeout:          "30s",
			RateLimit:        2,
		},
		Refresh: RefreshConfig{
			PollInterval: "60s",
			Automatic:    false,
		},
		Pricing: PricingConfig{
			CraftsPrice:    profit.Lowest.String(),
			CostPrice:      profit.Lowest.String(),
			FeeBasisPoints: profit.DefaultFeeBasisPoints,
			ZeroCostPolicy: profit.ZeroCostUnknown.String(),
		},
		Server: ServerConfig{
			Port:        8080,
			OpenBrowser: false,
		},
		Database: DatabaseConfig{
			Path:      "",
			Retention: 5,
		},
		App: AppConfig{
			DebugMode: false,
			Theme:     "",
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".crafting-profit")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return configDir, nil
}

// Path returns the path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path and applies environment
// overrides. Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path and applies environment overrides.
// Keys missing from the file keep their default values.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadEnv loads .env files into the process environment. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	if c.API.ConnectedRealmID <= 0 {
		return fmt.Errorf("connected realm id must be positive: %d", c.API.ConnectedRealmID)
	}
	if _, err := time.ParseDuration(c.API.Timeout); err != nil {
		return fmt.Errorf("invalid api timeout %q: %w", c.API.Timeout, err)
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive: %v", c.API.RateLimit)
	}

	interval, err := time.ParseDuration(c.Refresh.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", c.Refresh.PollInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive: %s", c.Refresh.PollInterval)
	}

	if _, err := c.PricingOptions(); err != nil {
		return err
	}

	if err := view.ValidateTheme(c.App.Theme); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Retention < 1 {
		return fmt.Errorf("database retention must be at least 1: %d", c.Database.Retention)
	}

	return nil
}

// PricingOptions converts the pricing section into ranking options.
func (c *Config) PricingOptions() (profit.Options, error) {
	crafts, err := profit.ParsePriceType(c.Pricing.CraftsPrice)
	if err != nil {
		return profit.Options{}, fmt.Errorf("crafts price: %w", err)
	}
	cost, err := profit.ParsePriceType(c.Pricing.CostPrice)
	if err != nil {
		return profit.Options{}, fmt.Errorf("cost price: %w", err)
	}
	policy, err := profit.ParseZeroCostPolicy(c.Pricing.ZeroCostPolicy)
	if err != nil {
		return profit.Options{}, err
	}

	opts := profit.Options{
		CraftsPrice:    crafts,
		CostPrice:      cost,
		FeeBasisPoints: c.Pricing.FeeBasisPoints,
		ZeroCost:       policy,
	}
	if err := opts.Validate(); err != nil {
		return profit.Options{}, err
	}
	return opts, nil
}

// GetTimeout returns the upstream request timeout as a duration.
func (c *Config) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(c.API.Timeout)
}

// GetPollInterval returns the update poll interval as a duration.
func (c *Config) GetPollInterval() (time.Duration, error) {
	return time.ParseDuration(c.Refresh.PollInterval)
}

// DatabasePath returns the configured database path or the default one.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data.db"), nil
}

// applyEnv overrides file values with CRAFTPROFIT_* environment variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"API_BASE_URL":             &c.API.BaseURL,
		"API_TIMEOUT":              &c.API.Timeout,
		"REFRESH_POLL_INTERVAL":    &c.Refresh.PollInterval,
		"PRICING_CRAFTS_PRICE":     &c.Pricing.CraftsPrice,
		"PRICING_COST_PRICE":       &c.Pricing.CostPrice,
		"PRICING_ZERO_COST_POLICY": &c.Pricing.ZeroCostPolicy,
		"DATABASE_PATH":            &c.Database.Path,
		"APP_THEME":                &c.App.Theme,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int64{
		"API_REALM_ID":             &c.API.RealmID,
		"API_CONNECTED_REALM_ID":   &c.API.ConnectedRealmID,
		"PRICING_FEE_BASIS_POINTS": &c.Pricing.FeeBasisPoints,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sSERVER_PORT: %w", EnvPrefix, err)
		}
		c.Server.Port = port
	}

	if v, ok := os.LookupEnv(EnvPrefix + "API_RATE_LIMIT"); ok {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sAPI_RATE_LIMIT: %w", EnvPrefix, err)
		}
		c.API.RateLimit = limit
	}

	bools := map[string]*bool{
		"REFRESH_AUTOMATIC":   &c.Refresh.Automatic,
		"SERVER_OPEN_BROWSER": &c.Server.OpenBrowser,
		"APP_DEBUG_MODE":      &c.App.DebugMode,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
	}

	return nil
}
