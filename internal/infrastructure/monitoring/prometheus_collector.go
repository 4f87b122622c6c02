package monitoring

import (
	"time"

	"streamgate/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	tokensIssuedTotal     prometheus.Counter
	tokenRejectionsTotal  *prometheus.CounterVec
	deviceLimitHitsTotal  prometheus.Counter
	proxyRequestsTotal    *prometheus.CounterVec
	proxyBytesServedTotal prometheus.Counter
	probeResultsTotal     *prometheus.CounterVec

	// Histograms
	upstreamFetchDuration   prometheus.Histogram
	manifestRewriteDuration prometheus.Histogram
	probeRunDuration        prometheus.Histogram

	// Gauges
	probeRunsActive prometheus.Gauge
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		tokensIssuedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_playback_tokens_issued_total",
			Help: "Total number of playback tokens issued",
		}),

		tokenRejectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_playback_token_rejections_total",
			Help: "Playback token verifications that failed",
		}, []string{"reason"}),

		deviceLimitHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_device_limit_hits_total",
			Help: "Token requests rejected because the account device quota was full",
		}),

		proxyRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_proxy_requests_total",
			Help: "Proxy requests by content kind and outcome",
		}, []string{"kind", "outcome"}),

		proxyBytesServedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamgate_proxy_bytes_served_total",
			Help: "Total bytes relayed to players",
		}),

		probeResultsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgate_probe_results_total",
			Help: "Health probe results by status",
		}, []string{"status"}),

		upstreamFetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream origin fetches",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15},
		}),

		manifestRewriteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_manifest_rewrite_duration_seconds",
			Help:    "Duration of playlist rewriting",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),

		probeRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgate_probe_run_duration_seconds",
			Help:    "Duration of complete health probe runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		probeRunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamgate_probe_runs_active",
			Help: "Number of probe runs currently in flight",
		}),
	}
}

func (p *PrometheusCollector) RecordTokenIssued() {
	p.tokensIssuedTotal.Inc()
}

func (p *PrometheusCollector) RecordTokenRejected(reason string) {
	p.tokenRejectionsTotal.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordDeviceLimitHit() {
	p.deviceLimitHitsTotal.Inc()
}

// RecordProxyRequest counts one relayed request. kind is "manifest" or
// "segment"; outcome is "ok", "denied" or "upstream_error".
func (p *PrometheusCollector) RecordProxyRequest(kind, outcome string) {
	p.proxyRequestsTotal.WithLabelValues(kind, outcome).Inc()
}

func (p *PrometheusCollector) RecordProxyBytes(bytes int64) {
	p.proxyBytesServedTotal.Add(float64(bytes))
}

func (p *PrometheusCollector) RecordUpstreamFetch(duration time.Duration) {
	p.upstreamFetchDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordManifestRewrite(duration time.Duration) {
	p.manifestRewriteDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordProbeResult(result domain.ProbeResult) {
	p.probeResultsTotal.WithLabelValues(string(result.Status)).Inc()
}

func (p *PrometheusCollector) ProbeRunStarted() {
	p.probeRunsActive.Inc()
}

func (p *PrometheusCollector) ProbeRunFinished(duration time.Duration) {
	p.probeRunsActive.Dec()
	p.probeRunDuration.Observe(duration.Seconds())
}
