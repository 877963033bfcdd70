package service

import "github.com/prometheus/client_golang/prometheus"

var (
	WagersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagers_submitted_total",
			Help: "Wager submissions by game kind and result",
		},
		[]string{"kind", "result"},
	)

	WagersRevealed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagers_revealed_total",
			Help: "Reveals by game kind and result (win, loss, error)",
		},
		[]string{"kind", "result"},
	)

	WagersClaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wagers_claimed_total",
			Help: "Claims by result",
		},
		[]string{"result"},
	)

	HandleMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_handle_mismatch_total",
			Help: "Submissions whose simulated handles differ from the executed account",
		},
		[]string{"kind"},
	)

	LedgerStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wager_ledger_stage_seconds",
			Help:    "Time spent per ledger stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(WagersSubmitted, WagersRevealed, WagersClaimed, HandleMismatches, LedgerStageDuration)
}
