package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Memory is the in-process store. It is the default backend and the
// test harness for the mutation protocol.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]map[string]any
	hub  *Hub
}

func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]map[string]map[string]any),
		hub:  NewHub(),
	}
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]map[string]any)
	}
	m.data[collection][id] = cloneFields(fields)
	snap := m.snapshotLocked(collection)
	m.mu.Unlock()

	m.hub.Publish(collection, snap)
	return nil
}

func (m *Memory) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	return id, m.Set(ctx, collection, id, fields)
}

func (m *Memory) Update(_ context.Context, collection, id string, patch map[string]any) error {
	m.mu.Lock()
	fields, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range patch {
		fields[k] = cloneValue(v)
	}
	snap := m.snapshotLocked(collection)
	m.mu.Unlock()

	m.hub.Publish(collection, snap)
	return nil
}

func (m *Memory) Increment(_ context.Context, collection, id, field string, delta decimal.Decimal) error {
	m.mu.Lock()
	fields, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	fields[field] = toDecimal(fields[field]).Add(delta)
	snap := m.snapshotLocked(collection)
	m.mu.Unlock()

	m.hub.Publish(collection, snap)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	if _, ok := m.data[collection][id]; !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.data[collection], id)
	snap := m.snapshotLocked(collection)
	m.mu.Unlock()

	m.hub.Publish(collection, snap)
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, q Query) ([]Document, error) {
	m.mu.RLock()
	snap := m.snapshotLocked(collection)
	m.mu.RUnlock()
	return ApplyQuery(snap, q), nil
}

func (m *Memory) Subscribe(collection string) (<-chan Snapshot, func()) {
	ch, cancel := m.hub.Subscribe(collection)
	m.mu.RLock()
	snap := m.snapshotLocked(collection)
	m.mu.RUnlock()
	m.hub.Publish(collection, snap)
	return ch, cancel
}

func (m *Memory) Close() error {
	m.hub.Close()
	return nil
}

func (m *Memory) snapshotLocked(collection string) Snapshot {
	docs := make(Snapshot, 0, len(m.data[collection]))
	for id, fields := range m.data[collection] {
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// ApplyQuery filters, orders and limits a snapshot in memory. Both
// backends evaluate queries this way; a handful of family members
// never produces enough documents to need an index.
func ApplyQuery(docs Snapshot, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if matchesFilters(doc, q.Filters) {
			out = append(out, doc)
		}
	}
	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := lessValue(out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy])
			if q.Desc {
				return lessValue(out[j].Fields[q.OrderBy], out[i].Fields[q.OrderBy])
			}
			return less
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matchesFilters(doc Document, filters []Where) bool {
	for _, f := range filters {
		got := doc.Fields[f.Field]
		if s, ok := f.Value.(string); ok {
			if gs, ok := got.(string); !ok || gs != s {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got, f.Value) {
			return false
		}
	}
	return true
}

func lessValue(a, b any) bool {
	if at, aok := asOrderTime(a); aok {
		bt, _ := asOrderTime(b)
		return at.Before(bt)
	}
	if as, ok := a.(string); ok {
		bs, _ := b.(string)
		return as < bs
	}
	return toDecimal(a).LessThan(toDecimal(b))
}

func asOrderTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneFields(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
