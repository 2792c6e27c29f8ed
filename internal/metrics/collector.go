// Package metrics is a small Prometheus-text metrics collector for the
// dialogue engine. It renders the exposition format directly instead
// of pulling in the full client library.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default is the process-wide collector.
var Default = NewCollector()

// Collector aggregates counters, gauges, and histograms.
type Collector struct {
	mu         sync.Mutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	start      time.Time
}

func NewCollector() *Collector {
	return &Collector{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
		start:      time.Now(),
	}
}

// Counter is a monotonically increasing value.
type Counter struct {
	help  string
	value atomic.Int64
}

func (c *Counter) Inc() { c.value.Add(1) }

func (c *Counter) Add(n int64) { c.value.Add(n) }

func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	help  string
	value atomic.Int64
}

func (g *Gauge) Inc() { g.value.Add(1) }

func (g *Gauge) Dec() { g.value.Add(-1) }

func (g *Gauge) Set(v int64) { g.value.Store(v) }

func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks a distribution over fixed buckets.
type Histogram struct {
	help    string
	mu      sync.Mutex
	bounds  []float64
	buckets []int64
	count   int64
	sum     float64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, le := range h.bounds {
		if v <= le {
			h.buckets[i]++
		}
	}
}

// Counter returns or creates the named counter.
func (c *Collector) Counter(name, help string) *Counter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctr, ok := c.counters[name]; ok {
		return ctr
	}
	ctr := &Counter{help: help}
	c.counters[name] = ctr
	return ctr
}

// Gauge returns or creates the named gauge.
func (c *Collector) Gauge(name, help string) *Gauge {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.gauges[name]; ok {
		return g
	}
	g := &Gauge{help: help}
	c.gauges[name] = g
	return g
}

// Histogram returns or creates the named histogram.
func (c *Collector) Histogram(name, help string, bounds []float64) *Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.histograms[name]; ok {
		return h
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)
	h := &Histogram{help: help, bounds: sorted, buckets: make([]int64, len(sorted))}
	c.histograms[name] = h
	return h
}

// Handler renders all metrics in Prometheus text format.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, c.Render())
	}
}

// Render produces the exposition text, names sorted for stable output.
func (c *Collector) Render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP opendialog_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE opendialog_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "opendialog_uptime_seconds %d\n", int64(time.Since(c.start).Seconds()))

	for _, name := range sortedKeys(c.counters) {
		ctr := c.counters[name]
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s counter\n%s %d\n", name, ctr.help, name, name, ctr.Value())
	}
	for _, name := range sortedKeys(c.gauges) {
		g := c.gauges[name]
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n", name, g.help, name, name, g.Value())
	}
	for _, name := range sortedKeys(c.histograms) {
		h := c.histograms[name]
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n# TYPE %s histogram\n", name, h.help, name)
		for i, le := range h.bounds {
			fmt.Fprintf(&sb, "%s_bucket{le=\"%g\"} %d\n", name, le, h.buckets[i])
		}
		fmt.Fprintf(&sb, "%s_bucket{le=\"+Inf\"} %d\n", name, h.count)
		fmt.Fprintf(&sb, "%s_count %d\n%s_sum %f\n", name, h.count, name, h.sum)
		h.mu.Unlock()
	}
	return sb.String()
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Metrics used across the engine.
var (
	TurnsTotal         = Default.Counter("opendialog_turns_total", "Total turns processed")
	SkillStarts        = Default.Counter("opendialog_skill_starts_total", "Total skill sessions started")
	SkillCompletions   = Default.Counter("opendialog_skill_completions_total", "Total skills reaching COMPLETE")
	SkillCancellations = Default.Counter("opendialog_skill_cancellations_total", "Total skills reaching CANCELLED")
	FallbackTotal      = Default.Counter("opendialog_fallback_total", "Total turns falling through to one-shot commands")
	ActiveSessions     = Default.Gauge("opendialog_active_sessions", "Currently active skill sessions")

	TurnLatency = Default.Histogram("opendialog_turn_latency_seconds", "Engine turn latency in seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1})
)
