package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transactionsAppliedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "points_ledger",
			Name:      "transactions_applied_total",
			Help:      "Completed ledger transactions applied.",
		},
		[]string{"type", "activity_type"},
	)

	reservationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "points_ledger",
			Name:      "reservations_total",
			Help:      "Debit reservations by lifecycle step.",
		},
		[]string{"outcome"}, // reserved, complete, cancel
	)

	insufficientBalanceCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "points_ledger",
			Name:      "insufficient_balance_total",
			Help:      "Debits or reservations rejected for insufficient balance.",
		},
	)

	redemptionsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "points_ledger",
			Name:      "redemptions_processed_total",
			Help:      "Redemptions resolved, by outcome.",
		},
		[]string{"outcome"}, // approved, rejected, cancelled, expired
	)

	correctionsAppliedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "points_ledger",
			Name:      "corrections_applied_total",
			Help:      "Corrective transactions written by the auditor.",
		},
	)

	consistencyMismatchGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "points_ledger",
			Name:      "consistency_mismatches",
			Help:      "Mismatched users found by the most recent consistency check.",
		},
	)

	eventsPublishedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "points_ledger",
			Name:      "events_published_total",
			Help:      "Domain events published to the message broker.",
		},
		[]string{"subject"},
	)
)
