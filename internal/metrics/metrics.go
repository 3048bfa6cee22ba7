package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrenthub",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrenthub",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "torrenthub",
		Name:      "source_requests_total",
		Help:      "Total requests to search sources by source name and result status.",
	}, []string{"source", "status"})

	SourceRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrenthub",
		Name:      "source_request_duration_seconds",
		Help:      "Search source request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"source"})

	SourceAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "torrenthub",
		Name:      "source_available",
		Help:      "Whether a source is available (1) or blocked by circuit breaker (0).",
	}, []string{"source"})

	SearchCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrenthub",
		Name:      "search_cache_hits_total",
		Help:      "Total number of search cache hits.",
	})

	SearchCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrenthub",
		Name:      "search_cache_misses_total",
		Help:      "Total number of search cache misses.",
	})

	DownloadsRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrenthub",
		Name:      "downloads_refreshed_total",
		Help:      "Total number of downloads whose state changed during a refresh cycle.",
	})

	DownloadRefreshErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "torrenthub",
		Name:      "download_refresh_errors_total",
		Help:      "Total number of per-download errors during refresh cycles.",
	})

	TorrentClientRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "torrenthub",
		Name:      "torrent_client_request_duration_seconds",
		Help:      "Torrent client API call duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "torrenthub",
		Name:      "websocket_clients",
		Help:      "Number of connected websocket clients.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		SourceRequestsTotal,
		SourceRequestDuration,
		SourceAvailable,
		SearchCacheHitsTotal,
		SearchCacheMissesTotal,
		DownloadsRefreshedTotal,
		DownloadRefreshErrorsTotal,
		TorrentClientRequestDuration,
		WebsocketClients,
	)
}
