// Package refresh keeps the latest ranking current: it fetches upstream
// datasets, ranks them, publishes immutable snapshots and polls for updates.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/crafting-profit/internal/events"
	"github.com/ramonehamilton/crafting-profit/internal/metrics"
	"github.com/ramonehamilton/crafting-profit/internal/profit"
	"github.com/ramonehamilton/crafting-profit/internal/storage"
	"github.com/ramonehamilton/crafting-profit/internal/upstream"
)

// ErrNoData is returned before the first successful refresh or restore.
var ErrNoData = errors.New("no data loaded")

// DefaultPollInterval matches the upstream update cadence check.
const DefaultPollInterval = time.Minute

// Source provides the upstream datasets.
type Source interface {
	GetAuctions(ctx context.Context, connectedRealmID int64) (*upstream.AuctionDataset, error)
	GetData(ctx context.Context) (*upstream.Dataset, error)
	GetLastModified(ctx context.Context, connectedRealmID int64) (time.Time, error)
}

// Store persists raw datasets so a restart can rebuild the last ranking.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *storage.Snapshot) error
	LatestSnapshot(ctx context.Context) (*storage.Snapshot, error)
}

// Dispatcher receives refresh events.
type Dispatcher interface {
	Dispatch(event events.Event)
}

// Config configures a Refresher.
type Config struct {
	ConnectedRealmID int64
	PollInterval     time.Duration
	Automatic        bool
	Options          profit.Options
}

// Snapshot is one published ranking together with the data it was built from.
// Snapshots are never modified after publication.
type Snapshot struct {
	RunID        string
	LastModified time.Time
	ComputedAt   time.Time
	Options      profit.Options
	Records      []*profit.Record
	Items        profit.Items
	Recipes      profit.Recipes
	Auctions     profit.AuctionIndex
}

// Status describes the refresher for the status endpoint.
type Status struct {
	RunID           string               `json:"runId,omitempty"`
	LastModified    time.Time            `json:"lastModified"`
	ComputedAt      time.Time            `json:"computedAt"`
	HasData         bool                 `json:"hasData"`
	UpdateAvailable bool                 `json:"updateAvailable"`
	DataFailed      bool                 `json:"dataFailed"`
	LastError       string               `json:"lastError,omitempty"`
	Automatic       bool                 `json:"automatic"`
	Running         bool                 `json:"running"`
	Recipes         int                  `json:"recipes"`
	Options         profit.Options       `json:"options"`
	Metrics         metrics.RefreshStats `json:"metrics"`
}

// Refresher owns the current snapshot.
type Refresher struct {
	source     Source
	store      Store
	dispatcher Dispatcher
	metrics    *metrics.RefreshMetrics

	// refreshMu serializes Refresh, SetOptions and Restore so snapshots are
	// published in order.
	refreshMu sync.Mutex

	mu              sync.RWMutex
	cfg             Config
	snapshot        *Snapshot
	updateAvailable bool
	dataFailed      bool
	lastError       error

	loopMu  sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	now func() time.Time
}

// New creates a Refresher. store and dispatcher may be nil.
func New(source Source, store Store, dispatcher Dispatcher, cfg Config) *Refresher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Refresher{
		source:     source,
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics.NewRefreshMetrics(),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Refresh fetches both datasets concurrently, ranks them and publishes a new
// snapshot. On failure the previous snapshot stays available and DataFailed
// is set.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	start := r.now()
	auctions, data, err := r.fetch(ctx)
	if err != nil {
		r.metrics.RecordFetch(time.Since(start), true)
		r.fail(ctx, err)
		return nil, fmt.Errorf("refresh: %w", err)
	}
	r.metrics.RecordFetch(time.Since(start), false)

	runID := uuid.NewString()
	snap := r.build(runID, auctions.LastModified, data.Items, data.Recipes,
		profit.IndexAuctions(auctions.Auctions), r.Options())

	r.persist(ctx, snap, auctions, data)
	r.publish(ctx, snap)

	log.Printf("[Refresher] Run %s ranked %d recipes (data modified %s)",
		runID, len(snap.Records), snap.LastModified.Format(time.RFC3339))
	return snap, nil
}

func (r *Refresher) fetch(ctx context.Context) (*upstream.AuctionDataset, *upstream.Dataset, error) {
	var (
		auctions *upstream.AuctionDataset
		data     *upstream.Dataset
	)

	realm := r.config().ConnectedRealmID
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		auctions, err = r.source.GetAuctions(gctx, realm)
		if err != nil {
			return fmt.Errorf("fetch auctions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		data, err = r.source.GetData(gctx)
		if err != nil {
			return fmt.Errorf("fetch data: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return auctions, data, nil
}

func (r *Refresher) build(runID string, lastModified time.Time, items profit.Items, recipes profit.Recipes, index profit.AuctionIndex, opts profit.Options) *Snapshot {
	start := time.Now()
	records := profit.Rank(recipes, items, index, opts)
	r.metrics.RecordRank(time.Since(start))

	return &Snapshot{
		RunID:        runID,
		LastModified: lastModified,
		ComputedAt:   r.now(),
		Options:      opts,
		Records:      records,
		Items:        items,
		Recipes:      recipes,
		Auctions:     index,
	}
}

// persist stores the raw payloads. Failures are logged: the ranking is still
// published, only restart recovery is affected.
func (r *Refresher) persist(ctx context.Context, snap *Snapshot, auctions *upstream.AuctionDataset, data *upstream.Dataset) {
	if r.store == nil {
		return
	}

	auctionsJSON, err := json.Marshal(auctions)
	if err != nil {
		log.Printf("[Refresher] Failed to encode auctions for run %s: %v", snap.RunID, err)
		return
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Refresher] Failed to encode data for run %s: %v", snap.RunID, err)
		return
	}

	err = r.store.SaveSnapshot(ctx, &storage.Snapshot{
		RunID:        snap.RunID,
		LastModified: snap.LastModified,
		CreatedAt:    snap.ComputedAt.UTC(),
		Auctions:     auctionsJSON,
		Data:         dataJSON,
	})
	if err != nil {
		log.Printf("[Refresher] Failed to persist run %s: %v", snap.RunID, err)
	}
}

func (r *Refresher) publish(ctx context.Context, snap *Snapshot) {
	r.mu.Lock()
	r.snapshot = snap
	r.updateAvailable = false
	r.dataFailed = false
	r.lastError = nil
	r.mu.Unlock()

	r.dispatch(ctx, events.TypeDataUpdated, events.DataUpdatedEvent{
		RunID:        snap.RunID,
		LastModified: snap.LastModified,
		Recipes:      len(snap.Records),
		Auctions:     len(snap.Auctions),
	})
}

func (r *Refresher) fail(ctx context.Context, err error) {
	r.mu.Lock()
	r.dataFailed = true
	r.lastError = err
	r.mu.Unlock()

	log.Printf("[Refresher] Refresh failed, keeping previous data: %v", err)
	r.dispatch(ctx, events.TypeDataFailed, events.DataFailedEvent{Error: err.Error()})
}

func (r *Refresher) dispatch(ctx context.Context, eventType string, data any) {
	if r.dispatcher == nil {
		return
	}
	r.dispatcher.Dispatch(events.NewTypedEvent(ctx, eventType, data))
}

// CheckForUpdate asks upstream when the configured realm last changed. A
// newer timestamp than the current snapshot marks an update as available and,
// with automatic refresh on, starts a refresh before returning.
func (r *Refresher) CheckForUpdate(ctx context.Context) (bool, error) {
	cfg := r.config()
	modified, err := r.source.GetLastModified(ctx, cfg.ConnectedRealmID)
	if err != nil {
		r.mu.Lock()
		r.dataFailed = true
		r.lastError = err
		r.mu.Unlock()
		return false, fmt.Errorf("check for update: %w", err)
	}

	r.mu.Lock()
	r.dataFailed = false
	current := r.snapshot
	available := current == nil || modified.After(current.LastModified)
	if available {
		r.updateAvailable = true
	}
	r.mu.Unlock()

	if !available {
		return false, nil
	}

	r.metrics.RecordUpdateAvailable()
	r.dispatch(ctx, events.TypeUpdateAvailable, events.UpdateAvailableEvent{
		LastModified: modified,
		Automatic:    cfg.Automatic,
	})

	if cfg.Automatic {
		if _, err := r.Refresh(ctx); err != nil {
			return true, err
		}
	}
	return true, nil
}

// SetOptions changes the pricing options and re-ranks the current data
// without fetching.
func (r *Refresher) SetOptions(opts profit.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	r.mu.Lock()
	r.cfg.Options = opts
	current := r.snapshot
	r.mu.Unlock()

	if current == nil || current.Options == opts {
		return nil
	}

	snap := r.build(current.RunID, current.LastModified, current.Items, current.Recipes, current.Auctions, opts)
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	return nil
}

// SetAutomatic toggles automatic refresh when an update is detected.
func (r *Refresher) SetAutomatic(automatic bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Automatic = automatic
}

// Automatic reports whether detected updates are refreshed automatically.
func (r *Refresher) Automatic() bool {
	return r.config().Automatic
}

// Options returns the current pricing options.
func (r *Refresher) Options() profit.Options {
	return r.config().Options
}

func (r *Refresher) config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Current returns the published snapshot, or ErrNoData.
func (r *Refresher) Current() (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return nil, ErrNoData
	}
	return r.snapshot, nil
}

// Records returns the current data ranked with opts. The cached ranking is
// reused when opts match the snapshot's options.
func (r *Refresher) Records(opts profit.Options) ([]*profit.Record, *Snapshot, error) {
	snap, err := r.Current()
	if err != nil {
		return nil, nil, err
	}
	if opts == snap.Options {
		return snap.Records, snap, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}
	start := time.Now()
	records := profit.Rank(snap.Recipes, snap.Items, snap.Auctions, opts)
	r.metrics.RecordRank(time.Since(start))
	return records, snap, nil
}

// Restore rebuilds the newest persisted snapshot. It returns
// storage.ErrNoSnapshot when nothing was stored.
func (r *Refresher) Restore(ctx context.Context) error {
	if r.store == nil {
		return storage.ErrNoSnapshot
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	stored, err := r.store.LatestSnapshot(ctx)
	if err != nil {
		return err
	}

	var auctions upstream.AuctionDataset
	if err := json.Unmarshal(stored.Auctions, &auctions); err != nil {
		return fmt.Errorf("decode stored auctions of run %s: %w", stored.RunID, err)
	}
	var data upstream.Dataset
	if err := json.Unmarshal(stored.Data, &data); err != nil {
		return fmt.Errorf("decode stored data of run %s: %w", stored.RunID, err)
	}

	snap := r.build(stored.RunID, auctions.LastModified, data.Items, data.Recipes,
		profit.IndexAuctions(auctions.Auctions), r.Options())
	r.publish(ctx, snap)

	log.Printf("[Refresher] Restored run %s with %d recipes", stored.RunID, len(snap.Records))
	return nil
}

// Status reports the refresher state.
func (r *Refresher) Status() Status {
	r.mu.RLock()
	status := Status{
		UpdateAvailable: r.updateAvailable,
		DataFailed:      r.dataFailed,
		Automatic:       r.cfg.Automatic,
		Options:         r.cfg.Options,
	}
	if r.lastError != nil {
		status.LastError = r.lastError.Error()
	}
	if r.snapshot != nil {
		status.HasData = true
		status.RunID = r.snapshot.RunID
		status.LastModified = r.snapshot.LastModified
		status.ComputedAt = r.snapshot.ComputedAt
		status.Recipes = len(r.snapshot.Records)
	}
	r.mu.RUnlock()

	status.Running = r.IsRunning()
	status.Metrics = r.metrics.GetStats()
	return status
}

// Start begins polling for updates every PollInterval. Returns an error if
// already running.
func (r *Refresher) Start(ctx context.Context) error {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if r.running {
		return fmt.Errorf("refresher is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(loopCtx, r.config().PollInterval, r.done)
	return nil
}

// Stop stops polling and waits for an in-flight check to finish.
func (r *Refresher) Stop() error {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()

	if !r.running {
		return fmt.Errorf("refresher is not running")
	}

	r.cancel()
	<-r.done
	r.running = false
	return nil
}

// IsRunning reports whether the polling loop is active.
func (r *Refresher) IsRunning() bool {
	r.loopMu.Lock()
	defer r.loopMu.Unlock()
	return r.running
}

func (r *Refresher) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.CheckForUpdate(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Refresher] %v", err)
			}
		}
	}
}
