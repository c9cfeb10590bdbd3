package metrics

import (
	"sync/atomic"
	"time"
)

// RefreshMetrics tracks dataset refreshes and ranking passes.
type RefreshMetrics struct {
	FetchLatency *Histogram
	RankLatency  *Histogram

	Refreshes        atomic.Uint64
	RefreshFailures  atomic.Uint64
	UpdatesAvailable atomic.Uint64

	startTime time.Time
}

// RefreshStats is a point-in-time view of RefreshMetrics.
type RefreshStats struct {
	FetchLatency     LatencyStats `json:"fetchLatency"`
	RankLatency      LatencyStats `json:"rankLatency"`
	Refreshes        uint64       `json:"refreshes"`
	RefreshFailures  uint64       `json:"refreshFailures"`
	UpdatesAvailable uint64       `json:"updatesAvailable"`
	SuccessRate      float64      `json:"successRate"` // percentage
	Uptime           string       `json:"uptime"`
}

// NewRefreshMetrics creates a new metrics collector.
func NewRefreshMetrics() *RefreshMetrics {
	return &RefreshMetrics{
		FetchLatency: NewHistogram(1000),
		RankLatency:  NewHistogram(1000),
		startTime:    time.Now(),
	}
}

// RecordFetch records one upstream fetch and whether it failed.
func (m *RefreshMetrics) RecordFetch(d time.Duration, failed bool) {
	m.Refreshes.Add(1)
	if failed {
		m.RefreshFailures.Add(1)
		return
	}
	m.FetchLatency.Record(d)
}

// RecordRank records the duration of one ranking pass.
func (m *RefreshMetrics) RecordRank(d time.Duration) {
	m.RankLatency.Record(d)
}

// RecordUpdateAvailable counts a detected upstream update.
func (m *RefreshMetrics) RecordUpdateAvailable() {
	m.UpdatesAvailable.Add(1)
}

// GetStats returns a snapshot of the current statistics.
func (m *RefreshMetrics) GetStats() RefreshStats {
	refreshes := m.Refreshes.Load()
	failures := m.RefreshFailures.Load()

	successRate := 0.0
	if refreshes > 0 {
		successRate = float64(refreshes-failures) / float64(refreshes) * 100
	}

	return RefreshStats{
		FetchLatency:     m.FetchLatency.Stats(),
		RankLatency:      m.RankLatency.Stats(),
		Refreshes:        refreshes,
		RefreshFailures:  failures,
		UpdatesAvailable: m.UpdatesAvailable.Load(),
		SuccessRate:      successRate,
		Uptime:           time.Since(m.startTime).Round(time.Second).String(),
	}
}
