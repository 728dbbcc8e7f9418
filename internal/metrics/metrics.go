package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tfl_search_requests_total",
		Help: "Total number of station search requests",
	})
	SearchShortQueryTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tfl_search_short_query_total",
		Help: "Searches rejected for being shorter than the minimum length",
	})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tfl_search_duration_ms",
		Help:    "Station search duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	})
	SearchEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tfl_search_empty_total",
		Help: "Searches that exhausted every tier without a result",
	})
	SearchTierHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tfl_search_tier_hits_total",
		Help: "Searches answered by each resolution tier",
	}, []string{"tier"})
	SearchTierFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tfl_search_tier_fail_total",
		Help: "Tier attempts that errored (as opposed to producing nothing)",
	}, []string{"tier"})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tfl_search_cache_hits_total",
		Help: "Per-query cache hits by layer",
	}, []string{"layer"})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tfl_search_cache_misses_total",
		Help: "Per-query cache misses",
	})
	IndexRebuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tfl_index_rebuilds_total",
		Help: "Directory index rebuild attempts by result",
	}, []string{"result"})
	IndexStations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tfl_index_stations",
		Help: "Number of stations in the current directory index",
	})
	IndexBuiltAt = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tfl_index_built_at_seconds",
		Help: "Unix time of the last successful directory index build",
	})
	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tfl_upstream_requests_total",
		Help: "Requests to the TfL API by endpoint and outcome",
	}, []string{"endpoint", "outcome"})
	UpstreamDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tfl_upstream_duration_ms",
		Help:    "TfL API call duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"endpoint"})
	SnapshotStations = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tfl_snapshot_stations",
		Help: "Number of stations in the loaded offline snapshot",
	})
)

func init() {
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchShortQueryTotal)
	prometheus.MustRegister(SearchDurationMs)
	prometheus.MustRegister(SearchEmptyTotal)
	prometheus.MustRegister(SearchTierHitsTotal)
	prometheus.MustRegister(SearchTierFailTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(IndexRebuildsTotal)
	prometheus.MustRegister(IndexStations)
	prometheus.MustRegister(IndexBuiltAt)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamDurationMs)
	prometheus.MustRegister(SnapshotStations)
}

// Handler exposes the default registry for scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
