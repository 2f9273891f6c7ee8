/*
 * file: monitor.go
 * package: monitor
 * description:
 *     The Resource Monitor (component J). Tracks room/player/game counts
 *     and inbound/outbound latency percentiles, exposes them both as
 *     Prometheus metrics on a private registry (grounded on the teacher's
 *     pack-mate goldbox-rpg's NewMetrics()) and as a ServerMetricsSample
 *     for the serverMetrics gateway event.
 */
package monitor

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const reservoirSize = 256

// ServerMetricsSample is the serverMetrics event payload and the source
// data for the Prometheus gauges scraped at /metrics.
type ServerMetricsSample struct {
	Rooms              int       `json:"rooms"`
	ActiveGames        int       `json:"active_games"`
	Players            int       `json:"players"`
	ProcessMemoryBytes uint64    `json:"process_memory_bytes"`
	CPULoad1m          float64   `json:"cpu_load_1m"`
	InboundLatencyP50  float64   `json:"inbound_latency_p50_ms"`
	InboundLatencyP95  float64   `json:"inbound_latency_p95_ms"`
	InboundLatencyP99  float64   `json:"inbound_latency_p99_ms"`
	OutboundLatencyP50 float64   `json:"outbound_latency_p50_ms"`
	OutboundLatencyP95 float64   `json:"outbound_latency_p95_ms"`
	OutboundLatencyP99 float64   `json:"outbound_latency_p99_ms"`
	SampledAt          time.Time `json:"sampled_at"`
}

// reservoir is a small fixed-capacity ring buffer used for percentile
// estimation. See DESIGN.md for why this is stdlib rather than a pack
// dependency: no example repo carries a standalone quantile library for
// in-process (non-HTTP) latency sampling.
type reservoir struct {
	mu     sync.Mutex
	values []float64
	cursor int
}

func newReservoir() *reservoir {
	return &reservoir{values: make([]float64, 0, reservoirSize)}
}

func (r *reservoir) observe(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) < reservoirSize {
		r.values = append(r.values, v)
		return
	}
	r.values[r.cursor] = v
	r.cursor = (r.cursor + 1) % reservoirSize
}

func (r *reservoir) percentiles() (p50, p95, p99 float64) {
	r.mu.Lock()
	sorted := append([]float64(nil), r.values...)
	r.mu.Unlock()
	if len(sorted) == 0 {
		return 0, 0, 0
	}
	sort.Float64s(sorted)
	return percentileOf(sorted, 0.50), percentileOf(sorted, 0.95), percentileOf(sorted, 0.99)
}

func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// Counts is supplied by the caller on each Sample call; the monitor does
// not reach into the Room Manager itself, keeping it decoupled per the
// hexagonal layering the teacher follows.
type Counts struct {
	Rooms       int
	ActiveGames int
	Players     int
}

// Monitor is the Resource Monitor (component J).
type Monitor struct {
	registry *prometheus.Registry

	roomsGauge   prometheus.Gauge
	gamesGauge   prometheus.Gauge
	playersGauge prometheus.Gauge

	inboundHist  prometheus.Histogram
	outboundHist prometheus.Histogram

	inboundReservoir  *reservoir
	outboundReservoir *reservoir

	startedAt time.Time
}

// New constructs a Monitor registered on its own private registry, never
// the global default, matching goldbox-rpg's NewMetrics() pattern so a
// second Monitor instance in tests never collides with process-wide
// collector state.
func New() *Monitor {
	reg := prometheus.NewRegistry()

	m := &Monitor{
		registry: reg,
		roomsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_server_rooms",
			Help: "Number of rooms currently tracked by the Room Manager.",
		}),
		gamesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_server_active_games",
			Help: "Number of rooms with a live game attached.",
		}),
		playersGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "room_server_players",
			Help: "Number of players currently seated across all rooms.",
		}),
		inboundHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "room_server_inbound_latency_seconds",
			Help:    "Time from inbound event receipt to Room Manager dispatch completion.",
			Buckets: prometheus.DefBuckets,
		}),
		outboundHist: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "room_server_outbound_latency_seconds",
			Help:    "Time from a Manager event to the outbound broadcast being queued.",
			Buckets: prometheus.DefBuckets,
		}),
		inboundReservoir:  newReservoir(),
		outboundReservoir: newReservoir(),
		startedAt:         time.Now(),
	}

	reg.MustRegister(m.roomsGauge, m.gamesGauge, m.playersGauge, m.inboundHist, m.outboundHist)
	return m
}

// Registry exposes the private registry for promhttp.HandlerFor.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveInbound records the latency of one inbound-event dispatch.
func (m *Monitor) ObserveInbound(d time.Duration) {
	m.inboundHist.Observe(d.Seconds())
	m.inboundReservoir.observe(float64(d.Microseconds()) / 1000.0)
}

// ObserveOutbound records the latency of one outbound-broadcast hop.
func (m *Monitor) ObserveOutbound(d time.Duration) {
	m.outboundHist.Observe(d.Seconds())
	m.outboundReservoir.observe(float64(d.Microseconds()) / 1000.0)
}

// Sample produces a ServerMetricsSample from the given counts plus the
// monitor's own latency reservoirs and process memory stats, and updates
// the Prometheus gauges to match.
func (m *Monitor) Sample(counts Counts) ServerMetricsSample {
	m.roomsGauge.Set(float64(counts.Rooms))
	m.gamesGauge.Set(float64(counts.ActiveGames))
	m.playersGauge.Set(float64(counts.Players))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	inP50, inP95, inP99 := m.inboundReservoir.percentiles()
	outP50, outP95, outP99 := m.outboundReservoir.percentiles()

	return ServerMetricsSample{
		Rooms:              counts.Rooms,
		ActiveGames:        counts.ActiveGames,
		Players:            counts.Players,
		ProcessMemoryBytes: memStats.Alloc,
		CPULoad1m:          0, // left at zero: reading host load average is platform-specific and out of scope for a self-contained sample.
		InboundLatencyP50:  inP50,
		InboundLatencyP95:  inP95,
		InboundLatencyP99:  inP99,
		OutboundLatencyP50: outP50,
		OutboundLatencyP95: outP95,
		OutboundLatencyP99: outP99,
		SampledAt:          time.Now(),
	}
}

// Uptime reports how long this Monitor has been running. The /healthz
// handler does not call it; it tracks its own start time.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startedAt)
}
