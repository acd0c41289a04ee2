// Package metrics collects Prometheus metrics for authentication, follow
// toggles and store health, and exposes them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth methods and toggle directions used as label values.
const (
	AuthRegister  = "register"
	AuthLogin     = "login"
	AuthFederated = "federated"

	DirectionFollow   = "follow"
	DirectionUnfollow = "unfollow"

	OutcomeSuccess = "success"
)

// Recorder is the metrics interface used by services and middleware.
type Recorder interface {
	RecordAuth(method, outcome string)
	RecordToggle(direction string)
	RecordStoreUnavailable(operation string)
	RecordFollowerDrift(clubs int)
	RecordRequest(method, route string, status int, duration time.Duration)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	authTotal        *prometheus.CounterVec
	toggleTotal      *prometheus.CounterVec
	storeUnavailable *prometheus.CounterVec
	driftTotal       prometheus.Counter
	requestTotal     *prometheus.CounterVec
	requestLatency   *prometheus.HistogramVec
}

// Ensure Collector implements Recorder interface
var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_auth_total",
			Help: "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		toggleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_follow_toggle_total",
			Help: "Committed follow toggles by direction.",
		}, []string{"direction"}),
		storeUnavailable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_store_unavailable_total",
			Help: "Operations that failed because the store was unavailable.",
		}, []string{"operation"}),
		driftTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulseboard_follower_drift_corrected_total",
			Help: "Clubs whose follower count was corrected by reconciliation.",
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulseboard_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulseboard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.authTotal,
		c.toggleTotal,
		c.storeUnavailable,
		c.driftTotal,
		c.requestTotal,
		c.requestLatency,
	)

	return c
}

// RecordAuth counts an authentication attempt.
func (c *Collector) RecordAuth(method, outcome string) {
	c.authTotal.WithLabelValues(method, outcome).Inc()
}

// RecordToggle counts a committed follow or unfollow.
func (c *Collector) RecordToggle(direction string) {
	c.toggleTotal.WithLabelValues(direction).Inc()
}

// RecordStoreUnavailable counts an operation that failed with an unavailable store.
func (c *Collector) RecordStoreUnavailable(operation string) {
	c.storeUnavailable.WithLabelValues(operation).Inc()
}

// RecordFollowerDrift counts clubs corrected by a reconciliation pass.
func (c *Collector) RecordFollowerDrift(clubs int) {
	c.driftTotal.Add(float64(clubs))
}

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Nop is a Recorder that discards everything.
type Nop struct{}

// Ensure Nop implements Recorder interface
var _ Recorder = Nop{}

func (Nop) RecordAuth(string, string) {}
func (Nop) RecordToggle(string) {}
func (Nop) RecordStoreUnavailable(string) {}
func (Nop) RecordFollowerDrift(int) {}
func (Nop) RecordRequest(string, string, int, time.Duration) {}

// Handler returns the HTTP handler that serves gatherer for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
