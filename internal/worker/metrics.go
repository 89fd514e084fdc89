package worker

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	instrumentationName = "github.com/goatcheese98/career-constellation/internal/worker"
	recentLatencyWindow = 1000
)

// Metrics tracks request, chat and build statistics. Counters are exported
// through the global OpenTelemetry meter and mirrored in-process for the
// metrics endpoint.
type Metrics struct {
	startTime       time.Time
	recentLatencies []time.Duration
	latenciesMu     sync.Mutex
	totalRequests   atomic.Int64
	totalLatency    atomic.Int64 // microseconds
	chatRequests    atomic.Int64
	limitedReplies  atomic.Int64
	rateLimited     atomic.Int64
	searchRequests  atomic.Int64
	buildsOK        atomic.Int64
	buildsFailed    atomic.Int64
	lastBuild       atomic.Int64 // milliseconds

	requests    metric.Int64Counter
	latency     metric.Float64Histogram
	builds      metric.Int64Counter
	buildTime   metric.Float64Histogram
	chatReplies metric.Int64Counter
}

// NewMetrics creates a metrics tracker on the global meter provider.
func NewMetrics() *Metrics {
	return newMetrics(otel.Meter(instrumentationName))
}

func newMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{
		startTime:       time.Now(),
		recentLatencies: make([]time.Duration, 0, recentLatencyWindow),
	}

	var err error
	if m.requests, err = meter.Int64Counter("constellation.http.requests",
		metric.WithDescription("HTTP requests served")); err != nil {
		log.Warn().Err(err).Msg("Failed to create request counter")
		m.requests, _ = noop.Meter{}.Int64Counter("")
	}
	if m.latency, err = meter.Float64Histogram("constellation.http.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("ms")); err != nil {
		log.Warn().Err(err).Msg("Failed to create latency histogram")
		m.latency, _ = noop.Meter{}.Float64Histogram("")
	}
	if m.builds, err = meter.Int64Counter("constellation.builds",
		metric.WithDescription("Dataset generation builds")); err != nil {
		log.Warn().Err(err).Msg("Failed to create build counter")
		m.builds, _ = noop.Meter{}.Int64Counter("")
	}
	if m.buildTime, err = meter.Float64Histogram("constellation.build.duration",
		metric.WithDescription("Dataset build time"), metric.WithUnit("ms")); err != nil {
		log.Warn().Err(err).Msg("Failed to create build histogram")
		m.buildTime, _ = noop.Meter{}.Float64Histogram("")
	}
	if m.chatReplies, err = meter.Int64Counter("constellation.chat.replies",
		metric.WithDescription("Chat replies by mode")); err != nil {
		log.Warn().Err(err).Msg("Failed to create chat counter")
		m.chatReplies, _ = noop.Meter{}.Int64Counter("")
	}
	return m
}

// RecordRequest records one served request.
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, latency time.Duration) {
	m.totalRequests.Add(1)
	m.totalLatency.Add(latency.Microseconds())

	attrs := metric.WithAttributes(attribute.String("route", route), attribute.Int("status", status))
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(latency.Microseconds())/1000, attrs)

	m.latenciesMu.Lock()
	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > recentLatencyWindow {
		m.recentLatencies = m.recentLatencies[len(m.recentLatencies)-recentLatencyWindow:]
	}
	m.latenciesMu.Unlock()
}

// RecordChat records a chat reply.
func (m *Metrics) RecordChat(ctx context.Context, limited bool) {
	m.chatRequests.Add(1)
	mode := "generated"
	if limited {
		m.limitedReplies.Add(1)
		mode = "limited"
	}
	m.chatReplies.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordRateLimited records a rejected chat request.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Add(1)
}

// RecordSearch records a job search.
func (m *Metrics) RecordSearch() {
	m.searchRequests.Add(1)
}

// RecordBuild records a finished rebuild.
func (m *Metrics) RecordBuild(ctx context.Context, ok bool, took time.Duration) {
	result := "published"
	if ok {
		m.buildsOK.Add(1)
		m.lastBuild.Store(took.Milliseconds())
	} else {
		m.buildsFailed.Add(1)
		result = "failed"
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.builds.Add(ctx, 1, attrs)
	m.buildTime.Record(ctx, float64(took.Milliseconds()), attrs)
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	TotalRequests   int64   `json:"total_requests"`
	ChatRequests    int64   `json:"chat_requests"`
	LimitedReplies  int64   `json:"limited_replies"`
	RateLimited     int64   `json:"rate_limited"`
	SearchRequests  int64   `json:"search_requests"`
	BuildsSucceeded int64   `json:"builds_succeeded"`
	BuildsFailed    int64   `json:"builds_failed"`
	LastBuildMS     int64   `json:"last_build_ms"`
	AvgLatencyMS    float64 `json:"avg_latency_ms"`
	P50LatencyMS    float64 `json:"p50_latency_ms"`
	P95LatencyMS    float64 `json:"p95_latency_ms"`
	P99LatencyMS    float64 `json:"p99_latency_ms"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// Snapshot returns the current counters and latency percentiles.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		TotalRequests:   m.totalRequests.Load(),
		ChatRequests:    m.chatRequests.Load(),
		LimitedReplies:  m.limitedReplies.Load(),
		RateLimited:     m.rateLimited.Load(),
		SearchRequests:  m.searchRequests.Load(),
		BuildsSucceeded: m.buildsOK.Load(),
		BuildsFailed:    m.buildsFailed.Load(),
		LastBuildMS:     m.lastBuild.Load(),
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
	}
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = float64(m.totalLatency.Load()) / float64(s.TotalRequests) / 1000
	}

	m.latenciesMu.Lock()
	sorted := slices.Clone(m.recentLatencies)
	m.latenciesMu.Unlock()
	slices.Sort(sorted)
	s.P50LatencyMS = ms(percentile(sorted, 0.50))
	s.P95LatencyMS = ms(percentile(sorted, 0.95))
	s.P99LatencyMS = ms(percentile(sorted, 0.99))
	return s
}

// percentile picks the p-th value of an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
