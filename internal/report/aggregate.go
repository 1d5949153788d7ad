// Package report derives read-only views from the transaction and user
// sets: category and user breakdowns, monthly trends, per-user history,
// budget usage and CSV export. Everything is recomputed from the full
// set on each call; nothing here ever writes to the store.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bilancio/internal/core"
)

const UncategorizedLabel = "Uncategorized"

type CategoryTotal struct {
	Name  string
	Total decimal.Decimal
}

// CategoryBreakdown groups Expense transactions in [from, to] by
// category, summing amounts. Blank categories fall under Uncategorized.
func CategoryBreakdown(txs []core.Transaction, from, to time.Time) []CategoryTotal {
	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != core.Expense || !inRange(tx.Date, from, to) {
			continue
		}
		name := tx.Category
		if name == "" {
			name = UncategorizedLabel
		}
		byCategory[name] = byCategory[name].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for name, total := range byCategory {
		out = append(out, CategoryTotal{Name: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type UserTotals struct {
	UserID  string
	Name    string
	Expense decimal.Decimal
	Income  decimal.Decimal
}

// UserBreakdown sums, per known user, Expense amounts against
// income-like amounts (Income, Profit, Return of Principal) within
// [from, to]. Transactions from unknown origin ids are ignored.
func UserBreakdown(txs []core.Transaction, users []core.User, from, to time.Time) []UserTotals {
	index := make(map[string]int, len(users))
	out := make([]UserTotals, len(users))
	for i, u := range users {
		index[u.ID] = i
		out[i] = UserTotals{UserID: u.ID, Name: u.Name}
	}
	for _, tx := range txs {
		if !inRange(tx.Date, from, to) {
			continue
		}
		i, ok := index[tx.User]
		if !ok {
			continue
		}
		switch {
		case tx.Type == core.Expense:
			out[i].Expense = out[i].Expense.Add(tx.Amount)
		case tx.Type.IncomeLike():
			out[i].Income = out[i].Income.Add(tx.Amount)
		}
	}
	return out
}

type MonthBucket struct {
	Key     string // YYYY-MM
	Label   string // e.g. "Apr 25"
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// MonthlyTrend buckets all transactions into the trailing months
// ending at now's month. Income counts the income-like types, expense
// counts Expense and Investment, transfers are internal moves and stay
// out of both sides.
func MonthlyTrend(txs []core.Transaction, now time.Time, months int) []MonthBucket {
	if months <= 0 {
		return nil
	}
	buckets := make([]MonthBucket, 0, months)
	index := make(map[string]int, months)
	for i := months - 1; i >= 0; i-- {
		m := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		key := m.Format("2006-01")
		index[key] = len(buckets)
		buckets = append(buckets, MonthBucket{Key: key, Label: m.Format("Jan 06")})
	}

	for _, tx := range txs {
		i, ok := index[tx.Date.Format("2006-01")]
		if !ok {
			continue
		}
		switch {
		case tx.Type.IncomeLike():
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case tx.Type == core.Expense || tx.Type == core.Investment:
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expense)
	}
	return buckets
}

// UserHistory returns every transaction referencing the user as origin
// or destination, deduplicated by id, newest first.
func UserHistory(txs []core.Transaction, userID string) []core.Transaction {
	seen := make(map[string]bool)
	var out []core.Transaction
	for _, tx := range txs {
		if tx.User != userID && tx.To != userID {
			continue
		}
		if seen[tx.ID] {
			continue
		}
		seen[tx.ID] = true
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// Period names accepted by PeriodRange.
const (
	PeriodThisMonth = "thisMonth"
	PeriodLastMonth = "lastMonth"
	PeriodThisYear  = "thisYear"
)

// PeriodRange resolves a named reporting period to a closed date range.
// Unknown names fall back to all time up to now.
func PeriodRange(now time.Time, period string) (from, to time.Time) {
	switch period {
	case PeriodThisMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		to = endOfMonth(from)
	case PeriodLastMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
		to = endOfMonth(from)
	case PeriodThisYear:
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		to = time.Date(now.Year(), 12, 31, 23, 59, 59, 0, now.Location())
	default:
		from = time.Time{}
		to = now
	}
	return from, to
}

func endOfMonth(startOfMonth time.Time) time.Time {
	return startOfMonth.AddDate(0, 1, 0).Add(-time.Second)
}

type Budget struct {
	Category string
	Amount   decimal.Decimal
}

type BudgetStatus struct {
	Category string
	Budget   decimal.Decimal
	Spent    decimal.Decimal
}

// BudgetUsage reports, per budget, the Expense total recorded against
// its category within [from, to].
func BudgetUsage(budgets []Budget, txs []core.Transaction, from, to time.Time) []BudgetStatus {
	out := make([]BudgetStatus, len(budgets))
	for i, b := range budgets {
		out[i] = BudgetStatus{Category: b.Category, Budget: b.Amount}
	}
	for _, tx := range txs {
		if tx.Type != core.Expense || !inRange(tx.Date, from, to) {
			continue
		}
		for i := range out {
			if out[i].Category == tx.Category {
				out[i].Spent = out[i].Spent.Add(tx.Amount)
			}
		}
	}
	return out
}

func inRange(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}
