package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fastswap_http_requests_total", Help: "HTTP requests served"},
		[]string{"route", "method", "status"},
	)
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "fastswap_http_request_duration_seconds", Help: "HTTP request latency", Buckets: prometheus.DefBuckets},
		[]string{"route", "method"},
	)
	RelayIntents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fastswap_relay_intents_total", Help: "Relay submissions by outcome"},
		[]string{"outcome"},
	)
	UpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fastswap_upstream_calls_total", Help: "Calls to upstream services"},
		[]string{"service", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "fastswap_upstream_duration_seconds", Help: "Upstream call latency", Buckets: prometheus.DefBuckets},
		[]string{"service"},
	)
	GasPriceGwei = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "fastswap_gas_price_gwei", Help: "Last polled gas price"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, RequestDuration, RelayIntents, UpstreamCalls, UpstreamDuration, GasPriceGwei)
}

// ObserveUpstream records one upstream call
func ObserveUpstream(service, status string, elapsed time.Duration) {
	UpstreamCalls.WithLabelValues(service, status).Inc()
	UpstreamDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
