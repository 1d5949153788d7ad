// Package metrics exposes prometheus instrumentation for the ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsTotal counts ledger mutations by operation and type.
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bilancio_transactions_total",
		Help: "Ledger mutations processed, by operation and transaction type.",
	}, []string{"op", "type"})

	// BalanceWrites counts successful balance increments.
	BalanceWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bilancio_balance_writes_total",
		Help: "Balance increments applied to user documents.",
	})

	// BalanceSkips counts balance updates skipped because the referenced
	// user document was missing (dangling reference).
	BalanceSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bilancio_balance_skips_total",
		Help: "Balance updates skipped due to a missing user document.",
	})

	// SplitsTotal counts split-bill fan-outs.
	SplitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bilancio_splits_total",
		Help: "Shared expenses fanned out into settlements.",
	})

	// ReconcileCorrections counts balances corrected by the drift job.
	ReconcileCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bilancio_reconcile_corrections_total",
		Help: "User balances corrected by the reconciliation job.",
	})
)
