// Package metrics exposes Prometheus instrumentation for upstream database
// calls and gateway requests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream counts and times requests made to the health database.
type Upstream struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewUpstream registers the upstream collectors on reg.
func NewUpstream(reg prometheus.Registerer) *Upstream {
	u := &Upstream{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healthdata_upstream_requests_total",
			Help: "Requests sent to the health database, by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "healthdata_upstream_request_duration_seconds",
			Help:    "Latency of requests sent to the health database.",
			Buckets: prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}
	reg.MustRegister(u.requests, u.duration)
	return u
}

// RoundTripper wraps next so every upstream call is recorded. A nil next
// means http.DefaultTransport.
func (u *Upstream) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(u.requests,
		promhttp.InstrumentRoundTripperDuration(u.duration, next))
}

// Gateway counts requests served by the gateway.
type Gateway struct {
	requests *prometheus.CounterVec
}

// NewGateway registers the gateway collectors on reg.
func NewGateway(reg prometheus.Registerer) *Gateway {
	g := &Gateway{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "healthdata_gateway_requests_total",
			Help: "Requests served by the gateway, by status code and method.",
		}, []string{"code", "method"}),
	}
	reg.MustRegister(g.requests)
	return g
}

func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(g.requests, next)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
