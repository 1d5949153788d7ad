// Package store defines the document store the ledger runs against:
// keyed collections of field maps with independently committed writes,
// an atomic numeric increment, and push-based collection snapshots.
// No multi-document transactions are offered or assumed.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	CollectionUsers        = "users"
	CollectionTransactions = "transactions"
)

// ErrNotFound is returned when a document id does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// Document is a stored field map together with its key.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is the full state of a collection at some point in time,
// delivered to subscribers after every mutation.
type Snapshot []Document

// Where is an equality filter on a document field.
type Where struct {
	Field string
	Value any
}

// Query selects documents by equality filters with optional ordering
// and limit. An empty query matches the whole collection.
type Query struct {
	Filters []Where
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the persistence contract of the ledger. Mutation logic uses
// Get/Set/Add/Update/Increment/Delete only; Subscribe exists for the
// report layer and never participates in balance updates.
type Store interface {
	// Get returns a document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes the full document under the given id, creating it if absent.
	Set(ctx context.Context, collection, id string, fields map[string]any) error

	// Add writes a new document under a store-assigned id and returns the id.
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Update patches individual fields of an existing document.
	// Returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, patch map[string]any) error

	// Increment atomically adds delta to a numeric field. A missing field
	// counts as zero. Returns ErrNotFound if the document does not exist.
	Increment(ctx context.Context, collection, id, field string, delta decimal.Decimal) error

	// Delete removes a document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error

	// Query returns the documents matching q.
	Query(ctx context.Context, collection string, q Query) ([]Document, error)

	// Subscribe returns a channel receiving collection snapshots after
	// every mutation, starting with the current state. The returned
	// cancel function releases the subscription.
	Subscribe(collection string) (<-chan Snapshot, func())

	Close() error
}

// toDecimal coerces stored numeric representations to a decimal.
// Documents round-trip through JSON in the sqlite backend, so numbers
// may come back as strings or json.Number.
func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	case interface{ String() string }: // json.Number
		if d, err := decimal.NewFromString(n.String()); err == nil {
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
