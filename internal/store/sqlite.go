package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// SQLite persists documents as JSON rows keyed by (collection, id).
// Every write commits independently; the only atomicity offered is the
// single-statement transaction wrapping Increment, which is exactly the
// counter primitive the balance protocol needs.
type SQLite struct {
	db  *sql.DB
	hub *Hub

	// serializes read-modify-write cycles so concurrent increments on
	// the same row cannot lose updates within this process
	writeMu sync.Mutex
}

func NewSQLite(dbPath string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, hub: NewHub()}, nil
}

func (s *SQLite) Close() error {
	s.hub.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, collection, id string) (Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	fields, err := decodeFields(data)
	if err != nil {
		return Document{}, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Fields: fields}, nil
}

func (s *SQLite) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	s.publish(ctx, collection)
	return nil
}

func (s *SQLite) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	return id, s.Set(ctx, collection, id, fields)
}

func (s *SQLite) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.patchLocked(ctx, collection, id, func(fields map[string]any) {
		for k, v := range patch {
			fields[k] = v
		}
	})
}

func (s *SQLite) Increment(ctx context.Context, collection, id, field string, delta decimal.Decimal) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.patchLocked(ctx, collection, id, func(fields map[string]any) {
		fields[field] = toDecimal(fields[field]).Add(delta)
	})
}

// patchLocked runs a read-modify-write cycle inside one transaction.
// Callers hold writeMu.
func (s *SQLite) patchLocked(ctx context.Context, collection, id string, mutate func(map[string]any)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin patch: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	fields, err := decodeFields(data)
	if err != nil {
		return fmt.Errorf("decode document %s/%s: %w", collection, id, err)
	}
	mutate(fields)

	encoded, err := encodeFields(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE collection = ? AND id = ?`,
		encoded, collection, id); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit patch: %w", err)
	}
	s.publish(ctx, collection)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.publish(ctx, collection)
	return nil
}

func (s *SQLite) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	snap, err := s.snapshot(ctx, collection)
	if err != nil {
		return nil, err
	}
	return ApplyQuery(snap, q), nil
}

func (s *SQLite) Subscribe(collection string) (<-chan Snapshot, func()) {
	ch, cancel := s.hub.Subscribe(collection)
	s.publish(context.Background(), collection)
	return ch, cancel
}

func (s *SQLite) snapshot(ctx context.Context, collection string) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	defer rows.Close()

	var snap Snapshot
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, id, err)
		}
		snap = append(snap, Document{ID: id, Fields: fields})
	}
	return snap, rows.Err()
}

func (s *SQLite) publish(ctx context.Context, collection string) {
	snap, err := s.snapshot(ctx, collection)
	if err != nil {
		return
	}
	s.hub.Publish(collection, snap)
}

func encodeFields(fields map[string]any) (string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeFields keeps JSON numbers as json.Number so amounts survive the
// round trip without float precision loss.
func decodeFields(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}
