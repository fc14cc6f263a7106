// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "welcome_wizard"

// Collector owns its own registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	JobsEnqueued        *prometheus.CounterVec
	JobsFinished        *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SyncCandidates      *prometheus.GaugeVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Total number of background jobs enqueued",
		}, []string{"job"}),
		JobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Total number of background jobs finished, by outcome",
		}, []string{"job", "status"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of background jobs in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SyncCandidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_candidates",
			Help:      "Import candidates found by the last library sync",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.JobsEnqueued, c.JobsFinished, c.JobDuration, c.HTTPRequestsTotal, c.HTTPRequestDuration, c.SyncCandidates)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) JobEnqueued(job string) {
	if c == nil {
		return
	}
	c.JobsEnqueued.WithLabelValues(job).Inc()
}

func (c *Collector) JobFinished(job, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.JobsFinished.WithLabelValues(job, status).Inc()
	c.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) SetSyncCandidates(manufacturers, deviceTypes int) {
	if c == nil {
		return
	}
	c.SyncCandidates.WithLabelValues("manufacturer").Set(float64(manufacturers))
	c.SyncCandidates.WithLabelValues("devicetype").Set(float64(deviceTypes))
}
