package inco

import "github.com/prometheus/client_golang/prometheus"

var RetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "inco_retries_total",
		Help: "Retried calls to the confidential-compute network",
	},
	[]string{"op"},
)

func init() {
	prometheus.MustRegister(RetriesTotal)
}
