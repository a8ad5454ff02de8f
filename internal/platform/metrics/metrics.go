// Package metrics provides observability for the simulation server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers runtime metrics.
type Collector struct {
	// Clock metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Economy
	Settlements        int64
	TransactionsOK     int64
	TransactionsFailed int64
	ListingsAdded      int64
	ListingsRemoved    int64

	// Persistence
	SavesOK          int64
	SavesFailed      int64
	LoadsOK          int64
	LoadsFailed      int64
	EventsWritten    int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = New()

// New creates an empty collector.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records one clock tick and how long the day took to process.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	for {
		cur := atomic.LoadInt64(&c.TickLatencyMax)
		if int64(latency) <= cur || atomic.CompareAndSwapInt64(&c.TickLatencyMax, cur, int64(latency)) {
			break
		}
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordSettlement counts a monthly settlement.
func (c *Collector) RecordSettlement() {
	atomic.AddInt64(&c.Settlements, 1)
}

// RecordTransaction counts a transaction attempt by outcome.
func (c *Collector) RecordTransaction(err error) {
	if err != nil {
		atomic.AddInt64(&c.TransactionsFailed, 1)
		return
	}
	atomic.AddInt64(&c.TransactionsOK, 1)
}

// RecordMarketRefresh counts listings added and removed by a churn pass.
func (c *Collector) RecordMarketRefresh(added, removed int) {
	atomic.AddInt64(&c.ListingsAdded, int64(added))
	atomic.AddInt64(&c.ListingsRemoved, int64(removed))
}

// RecordSave counts a save attempt by outcome.
func (c *Collector) RecordSave(err error) {
	if err != nil {
		atomic.AddInt64(&c.SavesFailed, 1)
		return
	}
	atomic.AddInt64(&c.SavesOK, 1)
}

// RecordLoad counts a load attempt by outcome.
func (c *Collector) RecordLoad(err error) {
	if err != nil {
		atomic.AddInt64(&c.LoadsFailed, 1)
		return
	}
	atomic.AddInt64(&c.LoadsOK, 1)
}

// RecordEventWrite records a journal write to the database.
func (c *Collector) RecordEventWrite(err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	lastTick := c.LastTickTime
	c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	var tickAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick.Format(time.RFC3339),
		},

		"economy": map[string]interface{}{
			"settlements":         atomic.LoadInt64(&c.Settlements),
			"transactions_ok":     atomic.LoadInt64(&c.TransactionsOK),
			"transactions_failed": atomic.LoadInt64(&c.TransactionsFailed),
			"listings_added":      atomic.LoadInt64(&c.ListingsAdded),
			"listings_removed":    atomic.LoadInt64(&c.ListingsRemoved),
		},

		"persistence": map[string]interface{}{
			"saves_ok":       atomic.LoadInt64(&c.SavesOK),
			"saves_failed":   atomic.LoadInt64(&c.SavesFailed),
			"loads_ok":       atomic.LoadInt64(&c.LoadsOK),
			"loads_failed":   atomic.LoadInt64(&c.LoadsFailed),
			"events_written": atomic.LoadInt64(&c.EventsWritten),
			"event_errors":   atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler serving the snapshot as JSON.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP immolife_%s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE immolife_%s counter\n", name)
			fmt.Fprintf(w, "immolife_%s %d\n\n", name, v)
		}

		counter("tick_count", "Total simulated days", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP immolife_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE immolife_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "immolife_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		counter("settlements", "Monthly settlements run", atomic.LoadInt64(&c.Settlements))

		fmt.Fprintf(w, "# HELP immolife_transactions_total Transactions by outcome\n")
		fmt.Fprintf(w, "# TYPE immolife_transactions_total counter\n")
		fmt.Fprintf(w, "immolife_transactions_total{outcome=\"ok\"} %d\n", atomic.LoadInt64(&c.TransactionsOK))
		fmt.Fprintf(w, "immolife_transactions_total{outcome=\"failed\"} %d\n\n", atomic.LoadInt64(&c.TransactionsFailed))

		fmt.Fprintf(w, "# HELP immolife_saves_total Saves by outcome\n")
		fmt.Fprintf(w, "# TYPE immolife_saves_total counter\n")
		fmt.Fprintf(w, "immolife_saves_total{outcome=\"ok\"} %d\n", atomic.LoadInt64(&c.SavesOK))
		fmt.Fprintf(w, "immolife_saves_total{outcome=\"failed\"} %d\n\n", atomic.LoadInt64(&c.SavesFailed))

		counter("events_written", "Journal records persisted", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP immolife_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE immolife_ws_connections gauge\n")
		fmt.Fprintf(w, "immolife_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP immolife_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE immolife_ws_messages_total counter\n")
		fmt.Fprintf(w, "immolife_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "immolife_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
