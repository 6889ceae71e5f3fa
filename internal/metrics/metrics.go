// Package metrics exposes Prometheus counters for interview sessions and rating updates.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	RecordSessionCreated()
	RecordTurn(ended bool)
	RecordGeneration(provider string, d time.Duration, err error)
	RecordRatingUpdate(outcome string)
	RecordHistoryWriteFailure()
	RecordHTTPResponse(route, method string, status int, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	sessionsCreated    prometheus.Counter
	turns              *prometheus.CounterVec
	generationLatency  *prometheus.HistogramVec
	generationFailures *prometheus.CounterVec
	ratingUpdates      *prometheus.CounterVec
	historyFailures    prometheus.Counter
	httpResponses      *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mockview_sessions_created_total",
			Help: "Interview sessions created.",
		}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mockview_turns_total",
			Help: "Interview turns applied, labelled by whether the turn ended the interview.",
		}, []string{"ended"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mockview_generation_latency_seconds",
			Help:    "Latency of language model calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		generationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mockview_generation_failures_total",
			Help: "Failed language model calls.",
		}, []string{"provider"}),
		ratingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mockview_rating_updates_total",
			Help: "Rating updates applied, labelled by outcome.",
		}, []string{"outcome"}),
		historyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mockview_rating_history_write_failures_total",
			Help: "Rating updates whose history entry could not be written.",
		}),
		httpResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mockview_http_responses_total",
			Help: "HTTP responses by route, method and status code.",
		}, []string{"route", "method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mockview_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		c.sessionsCreated,
		c.turns,
		c.generationLatency,
		c.generationFailures,
		c.ratingUpdates,
		c.historyFailures,
		c.httpResponses,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

func (c *Collector) RecordTurn(ended bool) {
	c.turns.WithLabelValues(strconv.FormatBool(ended)).Inc()
}

func (c *Collector) RecordGeneration(provider string, d time.Duration, err error) {
	c.generationLatency.WithLabelValues(provider).Observe(d.Seconds())
	if err != nil {
		c.generationFailures.WithLabelValues(provider).Inc()
	}
}

func (c *Collector) RecordRatingUpdate(outcome string) {
	c.ratingUpdates.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordHistoryWriteFailure() {
	c.historyFailures.Inc()
}

func (c *Collector) RecordHTTPResponse(route, method string, status int, d time.Duration) {
	c.httpResponses.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Recorder that drops everything.
type Nop struct{}

func (Nop) RecordSessionCreated()                                 {}
func (Nop) RecordTurn(bool)                                       {}
func (Nop) RecordGeneration(string, time.Duration, error)         {}
func (Nop) RecordRatingUpdate(string)                             {}
func (Nop) RecordHistoryWriteFailure()                            {}
func (Nop) RecordHTTPResponse(string, string, int, time.Duration) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
