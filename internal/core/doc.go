package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Document field names, shared between the codecs below and the store
// queries. The wire shape mirrors the documents the dashboard consumes.
const (
	FieldType        = "type"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldUser        = "user"
	FieldTo          = "to"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldComments    = "comments"
	FieldName        = "name"
	FieldBalance     = "balance"
	FieldRole        = "role"
	FieldEmail       = "email"
)

// Doc flattens a transaction into store document fields. The ID is the
// document key and is not part of the fields.
func (tx Transaction) Doc() map[string]any {
	doc := map[string]any{
		FieldType:        string(tx.Type),
		FieldAmount:      tx.Amount,
		FieldDate:        tx.Date,
		FieldUser:        tx.User,
		FieldDescription: tx.Description,
		FieldCategory:    tx.Category,
	}
	if tx.To != "" {
		doc[FieldTo] = tx.To
	}
	if len(tx.Comments) > 0 {
		comments := make([]any, len(tx.Comments))
		for i, c := range tx.Comments {
			comments[i] = c.Doc()
		}
		doc[FieldComments] = comments
	}
	return doc
}

func (c Comment) Doc() map[string]any {
	return map[string]any{
		"id":         c.ID,
		"text":       c.Text,
		"authorId":   c.AuthorID,
		"authorName": c.AuthorName,
		"at":         c.At,
	}
}

// TransactionFromDoc rebuilds a transaction from store document fields.
// Values may come back as native Go types (memory store) or as JSON
// primitives (sqlite store), so the coercions are deliberately loose.
func TransactionFromDoc(id string, doc map[string]any) Transaction {
	tx := Transaction{
		ID:          id,
		Type:        TransactionType(asString(doc[FieldType])),
		Amount:      asDecimal(doc[FieldAmount]),
		Date:        asTime(doc[FieldDate]),
		User:        asString(doc[FieldUser]),
		To:          asString(doc[FieldTo]),
		Description: asString(doc[FieldDescription]),
		Category:    asString(doc[FieldCategory]),
	}
	if raw, ok := doc[FieldComments].([]any); ok {
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				tx.Comments = append(tx.Comments, commentFromDoc(m))
			}
		}
	}
	return tx
}

func commentFromDoc(doc map[string]any) Comment {
	return Comment{
		ID:         asString(doc["id"]),
		Text:       asString(doc["text"]),
		AuthorID:   asString(doc["authorId"]),
		AuthorName: asString(doc["authorName"]),
		At:         asTime(doc["at"]),
	}
}

// Doc flattens a user into store document fields.
func (u User) Doc() map[string]any {
	doc := map[string]any{
		FieldName:    u.Name,
		FieldBalance: u.Balance,
		FieldRole:    u.Role,
	}
	if u.Email != "" {
		doc[FieldEmail] = u.Email
	}
	return doc
}

func UserFromDoc(id string, doc map[string]any) User {
	return User{
		ID:      id,
		Name:    asString(doc[FieldName]),
		Balance: asDecimal(doc[FieldBalance]),
		Role:    asString(doc[FieldRole]),
		Email:   asString(doc[FieldEmail]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case string:
		d, err := decimal.NewFromString(n)
		if err == nil {
			return d
		}
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case int:
		return decimal.NewFromInt(int64(n))
	}
	return decimal.Zero
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
