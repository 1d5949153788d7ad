package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTx() Transaction {
	return Transaction{
		Type:     Expense,
		Amount:   decimal.NewFromInt(120),
		Date:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		User:     "alice",
		Category: "Groceries",
	}
}

func TestTransactionValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"valid expense", func(tx *Transaction) {}, nil},
		{"valid transfer without category", func(tx *Transaction) {
			tx.Type = Transfer
			tx.To = "bob"
			tx.Category = ""
		}, nil},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, ErrInvalidAmount},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, ErrInvalidDate},
		{"missing user", func(tx *Transaction) { tx.User = "  " }, ErrMissingUser},
		{"missing category", func(tx *Transaction) { tx.Category = "" }, ErrMissingCategory},
		{"read-only type", func(tx *Transaction) { tx.Type = Profit }, ErrUnsupportedType},
		{"unknown type", func(tx *Transaction) { tx.Type = "Dividend" }, ErrUnsupportedType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := validTx()
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDisplayDescription(t *testing.T) {
	tx := validTx()
	tx.Description = "   "
	if got := tx.DisplayDescription(); got != DefaultDescription {
		t.Fatalf("blank description displayed as %q", got)
	}
	tx.Description = "Dinner"
	if got := tx.DisplayDescription(); got != "Dinner" {
		t.Fatalf("description displayed as %q", got)
	}
}

func TestIncomeLike(t *testing.T) {
	for _, typ := range []TransactionType{Income, Profit, ReturnOfPrincipal} {
		if !typ.IncomeLike() {
			t.Fatalf("%s should be income-like", typ)
		}
	}
	for _, typ := range []TransactionType{Expense, Investment, Transfer} {
		if typ.IncomeLike() {
			t.Fatalf("%s should not be income-like", typ)
		}
	}
}

func TestTransactionDocRoundTrip(t *testing.T) {
	tx := validTx()
	tx.To = "bob"
	tx.Comments = []Comment{{ID: "c1", Text: "paid in cash", AuthorID: "alice", AuthorName: "Alice", At: tx.Date}}

	got := TransactionFromDoc("t1", tx.Doc())
	if got.ID != "t1" || got.Type != tx.Type || got.User != tx.User || got.To != tx.To {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !got.Amount.Equal(tx.Amount) || !got.Date.Equal(tx.Date) {
		t.Fatalf("amount/date mismatch: %+v", got)
	}
	if len(got.Comments) != 1 || got.Comments[0].Text != "paid in cash" {
		t.Fatalf("comments lost: %+v", got.Comments)
	}
}

func TestDecimalCoercion(t *testing.T) {
	// sqlite documents come back with JSON primitives
	doc := map[string]any{
		FieldType:   string(Income),
		FieldAmount: "42.5",
		FieldDate:   "2025-03-14T00:00:00Z",
		FieldUser:   "alice",
	}
	tx := TransactionFromDoc("t2", doc)
	if tx.Amount.String() != "42.5" {
		t.Fatalf("string amount coerced to %s", tx.Amount)
	}
	if tx.Date.Year() != 2025 {
		t.Fatalf("string date coerced to %v", tx.Date)
	}
}
