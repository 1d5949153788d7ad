package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Expense           TransactionType = "Expense"
	Income            TransactionType = "Income"
	Investment        TransactionType = "Investment"
	Transfer          TransactionType = "Transfer"
	Profit            TransactionType = "Profit"
	ReturnOfPrincipal TransactionType = "Return of Principal"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// DefaultDescription is shown in place of a blank transaction description.
// The stored value is kept as-is, including the empty string.
const DefaultDescription = "General Transaction"

type (
	TransactionType string

	User struct {
		ID      string
		Name    string
		Balance decimal.Decimal
		Role    string
		Email   string // set once the profile is claimed
	}

	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      decimal.Decimal
		Date        time.Time
		User        string // origin user id
		To          string // destination user id, Transfer only
		Description string
		Category    string
		Comments    []Comment
	}

	Comment struct {
		ID         string
		Text       string
		AuthorID   string
		AuthorName string
		At         time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrMissingUser       = errors.New("missing user")
	ErrMissingCategory   = errors.New("missing category")
	ErrUnsupportedType   = errors.New("unsupported transaction type")
	ErrEmptyComment      = errors.New("empty comment")
	ErrTooFewHeads       = errors.New("split needs at least two people including the payer")
	ErrPayerParticipates = errors.New("payer cannot be listed as a participant")
)

// IncomeLike reports whether the type counts as income in reports.
// Profit and Return of Principal are legacy read-only categories: the
// mutation protocol never creates them, but the aggregator must
// classify them alongside Income.
func (t TransactionType) IncomeLike() bool {
	return t == Income || t == Profit || t == ReturnOfPrincipal
}

// Mutable reports whether the type can be created or edited.
func (t TransactionType) Mutable() bool {
	switch t {
	case Expense, Income, Investment, Transfer:
		return true
	}
	return false
}

// DisplayDescription returns the description with the blank placeholder applied.
func (tx Transaction) DisplayDescription() string {
	if strings.TrimSpace(tx.Description) == "" {
		return DefaultDescription
	}
	return tx.Description
}

func (tx Transaction) Validate() error {
	if !tx.Type.Mutable() {
		return ErrUnsupportedType
	}
	if tx.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(tx.User) == "" {
		return ErrMissingUser
	}
	if tx.Type != Transfer && strings.TrimSpace(tx.Category) == "" {
		return ErrMissingCategory
	}
	return nil
}

func (c Comment) Validate() error {
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyComment
	}
	return nil
}
