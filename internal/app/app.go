// Package app wires the dashboard services together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/time/rate"

	"github.com/ramonehamilton/crafting-profit/internal/api"
	"github.com/ramonehamilton/crafting-profit/internal/charts"
	"github.com/ramonehamilton/crafting-profit/internal/config"
	"github.com/ramonehamilton/crafting-profit/internal/events"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/refresh"
	"github.com/ramonehamilton/crafting-profit/internal/storage"
	"github.com/ramonehamilton/crafting-profit/internal/upstream"
)

// App holds the running services.
type App struct {
	store      *storage.Service
	client     *upstream.Client
	dispatcher *events.EventDispatcher
	refresher  *refresh.Refresher
	server     *api.Server

	// defaults are the config file's choices at startup, used for any
	// preference the user never saved.
	defaults storage.Preferences
}

// New builds the services from cfg. Saved preferences win over the config
// file for price types, automatic refresh and theme.
func New(ctx context.Context, cfg *config.Config, store *storage.Service) (*App, error) {
	opts, err := cfg.PricingOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}
	timeout, err := cfg.GetTimeout()
	if err != nil {
		return nil, err
	}
	pollInterval, err := cfg.GetPollInterval()
	if err != nil {
		return nil, err
	}

	a := &App{
		store:    store,
		defaults: defaultPreferences(cfg, opts),
	}

	prefs, err := store.LoadPreferences(ctx, a.defaults)
	if err != nil {
		log.Printf("[App] Failed to load preferences, using config: %v", err)
		prefs = a.defaults
	}
	opts = applyPreferences(opts, prefs)

	a.client = upstream.NewClient(upstream.ClientOptions{
		BaseURL:   cfg.API.BaseURL,
		RateLimit: rate.Limit(cfg.API.RateLimit),
		Timeout:   timeout,
	})

	a.dispatcher = events.NewEventDispatcher()
	a.dispatcher.Register(events.NewLoggingObserver(cfg.App.DebugMode))

	a.refresher = refresh.New(a.client, store, a.dispatcher, refresh.Config{
		ConnectedRealmID: cfg.API.ConnectedRealmID,
		PollInterval:     pollInterval,
		Automatic:        prefs.AutomaticRefresh,
		Options:          opts,
	})

	a.server = api.NewServer(&api.Config{
		Port:        cfg.Server.Port,
		OpenBrowser: cfg.Server.OpenBrowser,
	}, api.Dependencies{
		Refresher:   a.refresher,
		Preferences: store,
		Defaults:    a.defaults,
		Dispatcher:  a.dispatcher,
		Upstream:    a.client,
		Chart:       charts.DefaultChartConfig(),
	})
	a.dispatcher.Register(a.server.NewWebSocketObserver())

	return a, nil
}

func defaultPreferences(cfg *config.Config, opts profit.Options) storage.Preferences {
	return storage.Preferences{
		Theme:            cfg.App.Theme,
		AutomaticRefresh: cfg.Refresh.Automatic,
		CraftsPrice:      opts.CraftsPrice.String(),
		CostPrice:        opts.CostPrice.String(),
	}
}

// applyPreferences uses the saved price types when they are valid.
func applyPreferences(opts profit.Options, prefs storage.Preferences) profit.Options {
	if p, err := profit.ParsePriceType(prefs.CraftsPrice); err == nil {
		opts.CraftsPrice = p
	} else {
		log.Printf("[App] Ignoring saved crafts price: %v", err)
	}
	if p, err := profit.ParsePriceType(prefs.CostPrice); err == nil {
		opts.CostPrice = p
	} else {
		log.Printf("[App] Ignoring saved cost price: %v", err)
	}
	return opts
}

// Start serves the dashboard, shows the last stored ranking, fetches fresh
// data in the background and begins polling for updates.
func (a *App) Start(ctx context.Context) error {
	if err := a.server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	if err := a.refresher.Restore(ctx); err != nil && !errors.Is(err, storage.ErrNoSnapshot) {
		log.Printf("[App] Failed to restore last snapshot: %v", err)
	}
	go func() {
		if _, err := a.refresher.Refresh(ctx); err != nil {
			log.Printf("[App] Initial refresh failed: %v", err)
		}
	}()

	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start update polling: %w", err)
	}
	return nil
}

// ApplyConfig takes over a reloaded config file. The file drives the fee and
// zero cost policy; price types and automatic refresh stay as the user saved
// them. Dashboards are told when the effective settings change.
func (a *App) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	opts, err := cfg.PricingOptions()
	if err != nil {
		return err
	}
	prefs, err := a.store.LoadPreferences(ctx, a.defaults)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}
	opts = applyPreferences(opts, prefs)

	changed := opts != a.refresher.Options() || prefs.AutomaticRefresh != a.refresher.Automatic()
	if err := a.refresher.SetOptions(opts); err != nil {
		return err
	}
	a.refresher.SetAutomatic(prefs.AutomaticRefresh)

	if changed {
		// The watcher goroutine should not wait on slow observers.
		a.dispatcher.DispatchAsync(events.NewTypedEvent(ctx, events.TypeSettingsUpdated, events.SettingsUpdatedEvent{
			CraftsPrice:      prefs.CraftsPrice,
			CostPrice:        prefs.CostPrice,
			Theme:            prefs.Theme,
			AutomaticRefresh: prefs.AutomaticRefresh,
		}))
	}
	return nil
}

// Shutdown stops polling and the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.refresher.Stop(); err != nil {
		log.Printf("[App] Error stopping update polling: %v", err)
	}
	return a.server.Shutdown(ctx)
}

// Refresher returns the ranking owner.
func (a *App) Refresher() *refresh.Refresher {
	return a.refresher
}

// Dispatcher returns the event dispatcher.
func (a *App) Dispatcher() *events.EventDispatcher {
	return a.dispatcher
}

// Port returns the HTTP port.
func (a *App) Port() int {
	return a.server.Port()
}
