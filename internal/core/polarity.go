package core

import "github.com/shopspring/decimal"

// Direction selects whether a transaction's balance effect is being
// applied or undone.
type Direction int

const (
	Apply Direction = iota
	Revert
)

// Delta computes the signed balance change for the origin user of a
// transaction. The polarity table:
//
//	Income      +amount
//	Expense     -amount
//	Investment  -amount
//	Transfer    -amount (the destination is credited separately)
//
// Revert negates the applied polarity. Callers invoke Delta once per
// affected user: twice for a Transfer (origin here, destination via
// TransferCredit), once for everything else. Non-mutable types are
// rejected; validated inputs never reach that branch.
func Delta(t TransactionType, amount decimal.Decimal, dir Direction) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch t {
	case Income:
		d = amount
	case Expense, Investment, Transfer:
		d = amount.Neg()
	default:
		return decimal.Zero, ErrUnsupportedType
	}
	if dir == Revert {
		d = d.Neg()
	}
	return d, nil
}

// TransferCredit is the destination-side balance change of a Transfer:
// +amount on apply, -amount on revert.
func TransferCredit(amount decimal.Decimal, dir Direction) decimal.Decimal {
	if dir == Revert {
		return amount.Neg()
	}
	return amount
}
