package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sjsage522/pricecheckworker/logger"
)

var (
	RowsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricecheck_rows_processed_total",
			Help: "Input rows searched and written back",
		},
	)

	PricesFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricecheck_prices_found_total",
			Help: "Validated prices recorded",
		},
	)

	SearchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricecheck_search_failures_total",
			Help: "Searches that ended with the error marker, by error type",
		},
		[]string{"type"},
	)

	BlockErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricecheck_block_errors_total",
			Help: "Listing blocks skipped because they could not be read",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricecheck_cache_hits_total",
			Help: "Searches answered from the result cache",
		},
	)

	Checkpoints = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricecheck_checkpoints_total",
			Help: "Times the result table was persisted",
		},
	)
)

// Register adds the counters to the given registerer
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RowsProcessed, PricesFound, SearchFailures, BlockErrors, CacheHits, Checkpoints} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Start registers the counters and serves /metrics on port in the background
func Start(port string) error {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logger.LogError("metrics", err, "metrics server stopped")
		}
	}()
	return nil
}
