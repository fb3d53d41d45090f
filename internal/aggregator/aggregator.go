// Package aggregator maintains the bounded rolling views of recent readings
// that downstream consumers display: a chart series of normalized sensor
// values and a newest-first activity log.
package aggregator

import (
	"sync"
	"time"

	"github.com/terraguard/terraguard-go/internal/telemetry"
)

const (
	// ChartCapacity is the maximum number of chart points retained.
	ChartCapacity = 60
	// ActivityCapacity is the maximum number of activity entries retained.
	ActivityCapacity = 20
)

// ReadingAggregator holds the rolling chart series and activity log. Both are
// plain append/evict structures: no deduplication, no reordering; arrival
// order is authoritative. Safe for concurrent readers against the single
// writer of a session's read loop.
type ReadingAggregator struct {
	mu       sync.RWMutex
	chart    []telemetry.ChartPoint
	activity []telemetry.ActivityEntry
	now      func() time.Time
}

// New creates an empty aggregator.
func New() *ReadingAggregator {
	return &ReadingAggregator{now: time.Now}
}

// Add records one accepted reading in both views, evicting the oldest
// entries once the capacities are reached.
func (ra *ReadingAggregator) Add(r *telemetry.Reading) {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	label := ra.now().Format("15:04:05")

	ra.chart = append(ra.chart, telemetry.ChartPoint{
		Time: label,
		Mn:   r.Mn,
		Tn:   r.Tn,
		Vn:   r.Vn,
	})
	if len(ra.chart) > ChartCapacity {
		// Oldest points leave from the front; newest stays at the tail.
		ra.chart = append(ra.chart[:0], ra.chart[len(ra.chart)-ChartCapacity:]...)
	}

	ra.activity = append([]telemetry.ActivityEntry{{Reading: *r, Time: label}}, ra.activity...)
	if len(ra.activity) > ActivityCapacity {
		ra.activity = ra.activity[:ActivityCapacity]
	}
}

// ChartSeries returns a copy of the chart series, oldest first.
func (ra *ReadingAggregator) ChartSeries() []telemetry.ChartPoint {
	ra.mu.RLock()
	defer ra.mu.RUnlock()

	series := make([]telemetry.ChartPoint, len(ra.chart))
	copy(series, ra.chart)
	return series
}

// Activity returns a copy of the activity log, newest first.
func (ra *ReadingAggregator) Activity() []telemetry.ActivityEntry {
	ra.mu.RLock()
	defer ra.mu.RUnlock()

	entries := make([]telemetry.ActivityEntry, len(ra.activity))
	copy(entries, ra.activity)
	return entries
}

// Latest returns the most recently added entry, or nil when empty.
func (ra *ReadingAggregator) Latest() *telemetry.ActivityEntry {
	ra.mu.RLock()
	defer ra.mu.RUnlock()

	if len(ra.activity) == 0 {
		return nil
	}
	entry := ra.activity[0]
	return &entry
}
