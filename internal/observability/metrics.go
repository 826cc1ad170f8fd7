package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	modelCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_model_calls_total",
			Help: "Total number of generative model calls by purpose.",
		},
		[]string{"purpose"},
	)

	storeQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procura_store_queries_total",
			Help: "Total number of executed store queries by outcome.",
		},
		[]string{"outcome"},
	)

	repairAttemptsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "procura_repair_attempts_total",
			Help: "Total number of query repair attempts.",
		},
	)
)

func init() {
	prometheus.MustRegister(modelCallsTotal, storeQueriesTotal, repairAttemptsTotal)
}

func ObserveModelCall(purpose string) {
	modelCallsTotal.WithLabelValues(purpose).Inc()
}

func ObserveStoreQuery(outcome string) {
	storeQueriesTotal.WithLabelValues(outcome).Inc()
}

func ObserveRepairAttempt() {
	repairAttemptsTotal.Inc()
}
