// Package reconcile recomputes user balances from the full transaction
// set and corrects drift. Balance writes and transaction writes commit
// independently, so partial failures, races and rounding leave stored
// balances out of sync over time; this job restores the invariant that
// a balance equals the signed sum of the transactions referencing the
// user.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bilancio/internal/core"
	"bilancio/internal/metrics"
	"bilancio/internal/store"
)

type Reconciler struct {
	store store.Store

	// Workers writes corrections for distinct users concurrently; the
	// store increment is atomic per document so this is safe.
	Workers int
}

func New(st store.Store) *Reconciler {
	return &Reconciler{store: st, Workers: 4}
}

// Run recomputes every user's balance and patches the stored value
// where it drifted. Returns the number of corrected users.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	userDocs, err := r.store.Query(ctx, store.CollectionUsers, store.Query{})
	if err != nil {
		return 0, fmt.Errorf("load users: %w", err)
	}
	txDocs, err := r.store.Query(ctx, store.CollectionTransactions, store.Query{})
	if err != nil {
		return 0, fmt.Errorf("load transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(txDocs))
	for _, doc := range txDocs {
		txs = append(txs, core.TransactionFromDoc(doc.ID, doc.Fields))
	}
	expected := ExpectedBalances(txs)

	g, ctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	corrections := make(chan string, len(userDocs))
	for _, doc := range userDocs {
		user := core.UserFromDoc(doc.ID, doc.Fields)
		g.Go(func() error {
			want := expected[user.ID]
			if user.Balance.Equal(want) {
				return nil
			}
			slog.WarnContext(ctx, "Balance drift detected",
				"user", user.ID, "stored", user.Balance, "computed", want)
			if err := r.store.Update(ctx, store.CollectionUsers, user.ID, map[string]any{
				core.FieldBalance: want,
			}); err != nil {
				return fmt.Errorf("correct balance of %s: %w", user.ID, err)
			}
			metrics.ReconcileCorrections.Inc()
			corrections <- user.ID
			return nil
		})
	}
	err = g.Wait()
	close(corrections)

	corrected := len(corrections)
	if corrected > 0 {
		slog.InfoContext(ctx, "Reconciliation corrected balances", "count", corrected)
	}
	return corrected, err
}

// ExpectedBalances folds the signed effect of every transaction into a
// per-user total. Read-only legacy types never contributed a balance
// effect and are skipped.
func ExpectedBalances(txs []core.Transaction) map[string]decimal.Decimal {
	expected := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		delta, err := core.Delta(tx.Type, tx.Amount, core.Apply)
		if err != nil {
			continue
		}
		expected[tx.User] = expected[tx.User].Add(delta)
		if tx.Type == core.Transfer && tx.To != "" {
			expected[tx.To] = expected[tx.To].Add(core.TransferCredit(tx.Amount, core.Apply))
		}
	}
	return expected
}
