// Package metrics exposes Prometheus collectors for the catalog service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal           *prometheus.CounterVec
	apiRequestDurationSeconds  *prometheus.HistogramVec
	quotaRejectionsTotal       *prometheus.CounterVec
	cacheEventsTotal           *prometheus.CounterVec
	harvestTargetsTotal        *prometheus.CounterVec
	harvestRecordsUpsertsTotal prometheus.Counter
	harvestDraftsDiscarded     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		apiRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_api_requests_total",
				Help: "Total API requests, labeled by method, route and status code.",
			},
			[]string{"method", "route", "code"},
		)

		apiRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_api_request_duration_seconds",
				Help:    "Histogram of API request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)

		quotaRejectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_quota_rejections_total",
				Help: "Requests rejected at the quota gate, labeled by tier.",
			},
			[]string{"tier"},
		)

		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_cache_events_total",
				Help: "Cache-aside events, labeled by outcome (hit, miss, error).",
			},
			[]string{"outcome"},
		)

		harvestTargetsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_harvest_targets_total",
				Help: "Harvest targets processed, labeled by status (visited, failed).",
			},
			[]string{"status"},
		)

		harvestRecordsUpsertsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_harvest_upserts_total",
				Help: "Records upserted into the canonical store by harvest runs.",
			},
		)

		harvestDraftsDiscarded = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalog_harvest_drafts_discarded_total",
				Help: "Harvested drafts discarded for missing a natural key.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAPIRequest increments the API request metrics.
func ObserveAPIRequest(method, route string, code int, duration time.Duration) {
	if apiRequestsTotal == nil {
		return
	}
	apiRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	apiRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveQuotaRejection increments the quota rejection counter for a tier.
func ObserveQuotaRejection(tier string) {
	if quotaRejectionsTotal == nil {
		return
	}
	quotaRejectionsTotal.WithLabelValues(tier).Inc()
}

// ObserveCacheEvent increments the cache event counter.
func ObserveCacheEvent(outcome string) {
	if cacheEventsTotal == nil {
		return
	}
	cacheEventsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHarvestTarget increments the harvest target counter.
func ObserveHarvestTarget(status string) {
	if harvestTargetsTotal == nil {
		return
	}
	harvestTargetsTotal.WithLabelValues(status).Inc()
}

// ObserveHarvestUpsert increments the harvest upsert counter.
func ObserveHarvestUpsert() {
	if harvestRecordsUpsertsTotal == nil {
		return
	}
	harvestRecordsUpsertsTotal.Inc()
}

// ObserveHarvestDraftDiscarded increments the discarded-draft counter.
func ObserveHarvestDraftDiscarded() {
	if harvestDraftsDiscarded == nil {
		return
	}
	harvestDraftsDiscarded.Inc()
}
