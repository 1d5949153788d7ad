// Package ledger implements the transaction lifecycle: create, edit,
// delete and split, each paired with the balance mutations it implies.
//
// Balance updates are independent, non-atomic store writes. A failure
// partway through a sequence is surfaced to the caller but already
// completed steps are not rolled back; the reconcile job corrects the
// resulting drift.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/metrics"
	"bilancio/internal/store"
)

// Publisher emits change events after successful mutations. Publishing
// is best effort and never fails a ledger operation.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, op, txID string) error
}

type Service struct {
	store  store.Store
	events Publisher // may be nil
}

func New(st store.Store, events Publisher) *Service {
	return &Service{store: st, events: events}
}

// Create validates and persists a transaction, then applies its balance
// effect to the origin user and, for transfers, the destination user.
// The record write and the balance writes commit independently.
func (s *Service) Create(ctx context.Context, tx core.Transaction) (string, error) {
	tx = normalize(tx)
	if err := tx.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.Add(ctx, store.CollectionTransactions, tx.Doc())
	if err != nil {
		return "", fmt.Errorf("write transaction: %w", err)
	}
	tx.ID = id

	slog.InfoContext(ctx, "Transaction created",
		"id", id, "type", tx.Type, "amount", tx.Amount, "user", tx.User, "to", tx.To)

	if err := s.applyEffects(ctx, tx, core.Apply); err != nil {
		// The record is already persisted; balances are now inconsistent
		// until the reconcile job runs.
		return id, err
	}

	metrics.TransactionsTotal.WithLabelValues("create", string(tx.Type)).Inc()
	s.notify(ctx, "created", id)
	return id, nil
}

// Update edits a stored transaction with a full field replace. The
// stored effect is reverted first, then the new effect is applied, then
// the record is overwritten. When the edit changes the origin or
// destination identity, up to four distinct balances are touched.
func (s *Service) Update(ctx context.Context, id string, updated core.Transaction) error {
	updated = normalize(updated)
	if err := updated.Validate(); err != nil {
		return err
	}

	doc, err := s.store.Get(ctx, store.CollectionTransactions, id)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}
	old := core.TransactionFromDoc(id, doc.Fields)

	if err := s.applyEffects(ctx, old, core.Revert); err != nil {
		return err
	}
	if err := s.applyEffects(ctx, updated, core.Apply); err != nil {
		return err
	}

	// Comments ride along unchanged; an edit never drops them.
	updated.ID = id
	updated.Comments = old.Comments
	if err := s.store.Set(ctx, store.CollectionTransactions, id, updated.Doc()); err != nil {
		return fmt.Errorf("overwrite transaction %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		"id", id, "old_type", old.Type, "new_type", updated.Type,
		"old_user", old.User, "new_user", updated.User)

	metrics.TransactionsTotal.WithLabelValues("update", string(updated.Type)).Inc()
	s.notify(ctx, "updated", id)
	return nil
}

// Delete reverts a transaction's balance effect and removes the record.
// The record is removed even if a balance revert fails; the error is
// still reported to the caller.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.store.Get(ctx, store.CollectionTransactions, id)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", id, err)
	}
	tx := core.TransactionFromDoc(id, doc.Fields)

	revertErr := s.applyEffects(ctx, tx, core.Revert)

	if err := s.store.Delete(ctx, store.CollectionTransactions, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if revertErr != nil {
		return revertErr
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id, "type", tx.Type, "amount", tx.Amount)

	metrics.TransactionsTotal.WithLabelValues("delete", string(tx.Type)).Inc()
	s.notify(ctx, "deleted", id)
	return nil
}

// AddComment appends a comment to a transaction. Comments never touch
// balances.
func (s *Service) AddComment(ctx context.Context, txID string, c core.Comment) (core.Comment, error) {
	if err := c.Validate(); err != nil {
		return core.Comment{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	doc, err := s.store.Get(ctx, store.CollectionTransactions, txID)
	if err != nil {
		return core.Comment{}, fmt.Errorf("load transaction %s: %w", txID, err)
	}
	tx := core.TransactionFromDoc(txID, doc.Fields)
	tx.Comments = append(tx.Comments, c)

	comments := make([]any, len(tx.Comments))
	for i, item := range tx.Comments {
		comments[i] = item.Doc()
	}
	if err := s.store.Update(ctx, store.CollectionTransactions, txID, map[string]any{
		core.FieldComments: comments,
	}); err != nil {
		return core.Comment{}, fmt.Errorf("append comment to %s: %w", txID, err)
	}

	s.notify(ctx, "commented", txID)
	return c, nil
}

// applyEffects runs the balance mutations implied by a transaction in
// the given direction: origin first, then the transfer destination.
func (s *Service) applyEffects(ctx context.Context, tx core.Transaction, dir core.Direction) error {
	delta, err := core.Delta(tx.Type, tx.Amount, dir)
	if err != nil {
		return err
	}
	if err := s.adjustBalance(ctx, tx.User, delta); err != nil {
		return err
	}
	if tx.Type == core.Transfer && tx.To != "" {
		if err := s.adjustBalance(ctx, tx.To, core.TransferCredit(tx.Amount, dir)); err != nil {
			return err
		}
	}
	return nil
}

// adjustBalance increments a user's balance. A missing user document is
// logged and skipped: the dangling reference stays unreconciled rather
// than failing the surrounding operation.
func (s *Service) adjustBalance(ctx context.Context, userID string, delta decimal.Decimal) error {
	err := s.store.Increment(ctx, store.CollectionUsers, userID, core.FieldBalance, delta)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Balance update skipped, user not found", "user", userID, "delta", delta)
		metrics.BalanceSkips.Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("update balance of %s: %w", userID, err)
	}
	metrics.BalanceWrites.Inc()
	return nil
}

func (s *Service) notify(ctx context.Context, op, txID string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, op, txID); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event", "op", op, "id", txID, "error", err)
	}
}

// normalize clears the destination for non-transfer types, mirroring
// how edits blank the field when the type changes away from Transfer.
func normalize(tx core.Transaction) core.Transaction {
	if tx.Type != core.Transfer {
		tx.To = ""
	}
	return tx
}
