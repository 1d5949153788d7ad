package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
	"bilancio/internal/metrics"
)

const (
	SharedExpenseCategory   = "Shared Expense"
	SplitSettlementCategory = "Split Settlement"
)

// SplitRequest describes one shared cost to distribute: the payer fronts
// the total and every participant owes an equal share back.
type SplitRequest struct {
	Payer        string
	Participants []string // user ids, excluding the payer
	Total        decimal.Decimal
	Description  string
	Date         time.Time
}

// SplitResult lists the transactions a split produced. On partial
// failure it holds the ids created before the failing step.
type SplitResult struct {
	Share       decimal.Decimal
	ExpenseID   string
	TransferIDs []string
}

func (r SplitRequest) validate() error {
	if strings.TrimSpace(r.Payer) == "" {
		return core.ErrMissingUser
	}
	if r.Total.Sign() <= 0 {
		return core.ErrInvalidAmount
	}
	if len(r.Participants) < 1 {
		return core.ErrTooFewHeads
	}
	for _, p := range r.Participants {
		if p == r.Payer {
			return core.ErrPayerParticipates
		}
	}
	return nil
}

// Split fans one shared expense out into an Expense on the payer plus a
// Transfer from each participant back to the payer.
//
// The share is the total divided by heads (payer included), rounded half
// away from zero to whole units; the rounding remainder is not
// redistributed, so the payer nets total - share*participants. The
// participant loop is sequential and not transactional: a failure mid
// loop leaves the participants already processed charged and the rest
// untouched.
func (s *Service) Split(ctx context.Context, req SplitRequest) (SplitResult, error) {
	if err := req.validate(); err != nil {
		return SplitResult{}, err
	}

	heads := 1 + len(req.Participants)
	share := core.EqualShare(req.Total, heads)
	if share.Sign() <= 0 {
		// Total too small to produce a positive per-head settlement
		return SplitResult{}, core.ErrInvalidAmount
	}

	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = core.DefaultDescription
	}

	result := SplitResult{Share: share}

	expenseID, err := s.Create(ctx, core.Transaction{
		Type:        core.Expense,
		Amount:      req.Total,
		Date:        req.Date,
		User:        req.Payer,
		Description: description,
		Category:    SharedExpenseCategory,
	})
	if err != nil {
		return result, fmt.Errorf("record shared expense: %w", err)
	}
	result.ExpenseID = expenseID

	for _, participant := range req.Participants {
		transferID, err := s.Create(ctx, core.Transaction{
			Type:        core.Transfer,
			Amount:      share,
			Date:        req.Date,
			User:        participant,
			To:          req.Payer,
			Description: "Split: " + description,
			Category:    SplitSettlementCategory,
		})
		if err != nil {
			// No rollback: settlements created so far stand.
			return result, fmt.Errorf("record settlement for %s: %w", participant, err)
		}
		result.TransferIDs = append(result.TransferIDs, transferID)
	}

	slog.InfoContext(ctx, "Split recorded",
		"payer", req.Payer,
		"participants", len(req.Participants),
		"total", req.Total,
		"share", share)

	metrics.SplitsTotal.Inc()
	return result, nil
}
