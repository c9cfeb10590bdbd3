package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ramonehamilton/crafting-profit/internal/config"
	"github.com/ramonehamilton/crafting-profit/internal/events"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/storage"
	"github.com/ramonehamilton/crafting-profit/internal/upstream"
)

var testModified = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// newUpstream serves one profitable recipe until down is set.
func newUpstream(t *testing.T, down *atomic.Bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auctions/1084":
			_ = json.NewEncoder(w).Encode(upstream.AuctionDataset{
				LastModified: testModified,
				Auctions: []profit.AuctionObservation{
					{ID: 1, Quantity: 5, LastUpdate: testModified, Lowest: 1000, FirstQuartile: 2000},
					{ID: 2, Quantity: 50, LastUpdate: testModified, Lowest: 100, FirstQuartile: 150},
				},
			})
		case "/api/data":
			_ = json.NewEncoder(w).Encode(upstream.Dataset{
				Items: profit.Items{
					1: {Name: "Potion"},
					2: {Name: "Herb"},
				},
				Recipes: profit.Recipes{
					10: {
						Name:       "Brew Potion",
						Profession: "Alchemy",
						Crafts:     &profit.RecipeItem{ID: 1, Quantity: 1},
						Reagents:   []profit.RecipeItem{{ID: 2, Quantity: 2}},
					},
				},
			})
		case "/api/auctions/lastUpdate":
			_ = json.NewEncoder(w).Encode([]upstream.LastUpdate{{ID: 1084, LastModified: testModified}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = baseURL
	cfg.API.RateLimit = 100
	cfg.API.Timeout = "5s"
	cfg.Refresh.PollInterval = "1h"
	cfg.Server.Port = 0
	return cfg
}

func openStore(t *testing.T, path string) *storage.Service {
	t.Helper()
	db, err := storage.Open(storage.DefaultConfig(path))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	store := storage.NewService(db, 3)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newApp(t *testing.T, ctx context.Context, cfg *config.Config, store *storage.Service) *App {
	t.Helper()
	a, err := New(ctx, cfg, store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

// within fails the test when fn does not return in time.
func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s did not return within %s", what, d)
	}
}

type settingsObserver struct {
	received chan events.SettingsUpdatedEvent
}

func (o *settingsObserver) OnEvent(event events.Event) error {
	if data, ok := events.GetTypedData[events.SettingsUpdatedEvent](event); ok {
		o.received <- data
	}
	return nil
}

func (o *settingsObserver) GetName() string { return "settingsObserver" }

func (o *settingsObserver) ShouldHandle(eventType string) bool {
	return eventType == events.TypeSettingsUpdated
}

// seedSnapshot runs one refresh so the store holds a ranking, as a previous
// process would have left it.
func seedSnapshot(t *testing.T, ctx context.Context, cfg *config.Config, store *storage.Service) string {
	t.Helper()
	first := newApp(t, ctx, cfg, store)
	snap, err := first.Refresher().Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return snap.RunID
}

func TestRestore_WithObserversBeforeServerStarts(t *testing.T) {
	ctx := context.Background()
	var down atomic.Bool
	cfg := testConfig(newUpstream(t, &down).URL)
	store := openStore(t, filepath.Join(t.TempDir(), "app.db"))
	runID := seedSnapshot(t, ctx, cfg, store)

	// The websocket observer is registered by New, the server is not serving.
	a := newApp(t, ctx, cfg, store)
	within(t, 3*time.Second, "Restore", func() {
		if err := a.Refresher().Restore(ctx); err != nil {
			t.Errorf("Restore failed: %v", err)
		}
	})

	snap, err := a.Refresher().Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if snap.RunID != runID {
		t.Errorf("Expected restored run %s, got %s", runID, snap.RunID)
	}
}

func TestStart_RestoresStoredRankingWhileUpstreamIsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var down atomic.Bool
	cfg := testConfig(newUpstream(t, &down).URL)
	store := openStore(t, filepath.Join(t.TempDir(), "app.db"))
	runID := seedSnapshot(t, ctx, cfg, store)

	down.Store(true)
	a := newApp(t, ctx, cfg, store)
	within(t, 3*time.Second, "Start", func() {
		if err := a.Start(ctx); err != nil {
			t.Errorf("Start failed: %v", err)
		}
	})
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := a.Shutdown(shutdownCtx); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	}()

	snap, err := a.Refresher().Current()
	if err != nil {
		t.Fatalf("Expected the stored ranking after restart: %v", err)
	}
	if snap.RunID != runID {
		t.Errorf("Expected restored run %s, got %s", runID, snap.RunID)
	}
	if len(snap.Records) != 1 || snap.Records[0].Profit != 750 {
		t.Errorf("Unexpected restored ranking %+v", snap.Records)
	}
	if !a.Refresher().IsRunning() {
		t.Error("Expected update polling to run")
	}
}

func TestNew_SavedPreferencesWin(t *testing.T) {
	ctx := context.Background()
	var down atomic.Bool
	cfg := testConfig(newUpstream(t, &down).URL)
	store := openStore(t, filepath.Join(t.TempDir(), "app.db"))

	err := store.SavePreferences(ctx, storage.Preferences{
		CraftsPrice:      "firstQuartile",
		CostPrice:        "lowest",
		AutomaticRefresh: true,
	})
	if err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	a := newApp(t, ctx, cfg, store)
	if got := a.Refresher().Options().CraftsPrice; got != profit.FirstQuartile {
		t.Errorf("Expected saved crafts price firstQuartile, got %s", got)
	}
	if !a.Refresher().Automatic() {
		t.Error("Expected saved automatic refresh")
	}
}

func TestApplyConfig_KeepsSavedPreferences(t *testing.T) {
	ctx := context.Background()
	var down atomic.Bool
	cfg := testConfig(newUpstream(t, &down).URL)
	store := openStore(t, filepath.Join(t.TempDir(), "app.db"))

	err := store.SavePreferences(ctx, storage.Preferences{
		CraftsPrice: "firstQuartile",
		CostPrice:   "lowest",
	})
	if err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	a := newApp(t, ctx, cfg, store)
	if _, err := a.Refresher().Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	observer := &settingsObserver{received: make(chan events.SettingsUpdatedEvent, 4)}
	a.Dispatcher().Register(observer)

	// The edited file changes price types, automatic refresh and the fee.
	reloaded := testConfig(cfg.API.BaseURL)
	reloaded.Pricing.CraftsPrice = "mean"
	reloaded.Pricing.CostPrice = "mean"
	reloaded.Refresh.Automatic = true
	reloaded.Pricing.FeeBasisPoints = 0
	reloaded.App.DebugMode = true

	if err := a.ApplyConfig(ctx, reloaded); err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}

	opts := a.Refresher().Options()
	if opts.CraftsPrice != profit.FirstQuartile || opts.CostPrice != profit.Lowest {
		t.Errorf("Expected saved price types to survive the reload, got %s/%s", opts.CraftsPrice, opts.CostPrice)
	}
	if opts.FeeBasisPoints != 0 {
		t.Errorf("Expected the file's fee, got %d", opts.FeeBasisPoints)
	}
	if a.Refresher().Automatic() {
		t.Error("Expected automatic refresh to follow the saved preference")
	}

	snap, err := a.Refresher().Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	// floor(2000 * 1) - 2*100 with no fee
	if snap.Records[0].Profit != 1800 {
		t.Errorf("Expected re-ranked profit 1800, got %d", snap.Records[0].Profit)
	}

	select {
	case got := <-observer.received:
		if got.CraftsPrice != "firstQuartile" || got.CostPrice != "lowest" {
			t.Errorf("Unexpected settings event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a settings:updated event")
	}

	// Reloading the same file changes nothing and stays quiet.
	if err := a.ApplyConfig(ctx, reloaded); err != nil {
		t.Fatalf("ApplyConfig failed: %v", err)
	}
	select {
	case got := <-observer.received:
		t.Errorf("Unexpected settings event %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestApplyConfig_InvalidPricing(t *testing.T) {
	ctx := context.Background()
	var down atomic.Bool
	cfg := testConfig(newUpstream(t, &down).URL)
	store := openStore(t, filepath.Join(t.TempDir(), "app.db"))
	a := newApp(t, ctx, cfg, store)

	before := a.Refresher().Options()
	reloaded := testConfig(cfg.API.BaseURL)
	reloaded.Pricing.ZeroCostPolicy = "free"

	if err := a.ApplyConfig(ctx, reloaded); err == nil {
		t.Error("Expected an invalid zero cost policy to be rejected")
	}
	if a.Refresher().Options() != before {
		t.Error("Expected options to stay unchanged")
	}
}
