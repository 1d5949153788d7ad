package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeltaPolarity(t *testing.T) {
	amount := decimal.NewFromInt(250)
	cases := []struct {
		typ  TransactionType
		want string
	}{
		{Income, "250"},
		{Expense, "-250"},
		{Investment, "-250"},
		{Transfer, "-250"},
	}
	for _, tc := range cases {
		applied, err := Delta(tc.typ, amount, Apply)
		if err != nil {
			t.Fatalf("Delta(%s, apply): %v", tc.typ, err)
		}
		if applied.String() != tc.want {
			t.Fatalf("Delta(%s, apply) = %s, want %s", tc.typ, applied, tc.want)
		}
		reverted, err := Delta(tc.typ, amount, Revert)
		if err != nil {
			t.Fatalf("Delta(%s, revert): %v", tc.typ, err)
		}
		if !reverted.Equal(applied.Neg()) {
			t.Fatalf("Delta(%s, revert) = %s, want negation of %s", tc.typ, reverted, applied)
		}
	}
}

func TestDeltaRejectsReadOnlyTypes(t *testing.T) {
	for _, typ := range []TransactionType{Profit, ReturnOfPrincipal, "Dividend", ""} {
		if _, err := Delta(typ, decimal.NewFromInt(10), Apply); !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("Delta(%q) err = %v, want ErrUnsupportedType", typ, err)
		}
	}
}

func TestTransferCredit(t *testing.T) {
	amount := decimal.NewFromInt(40)
	if got := TransferCredit(amount, Apply); !got.Equal(amount) {
		t.Fatalf("apply credit = %s, want 40", got)
	}
	if got := TransferCredit(amount, Revert); !got.Equal(amount.Neg()) {
		t.Fatalf("revert credit = %s, want -40", got)
	}
}
