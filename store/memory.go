package store

import (
	"context"
	"sync"
)

// NewMemory returns a Store kept in process memory. Scans return records in
// insertion order.
func NewMemory() *Store {
	return &Store{
		Users:     newMemoryTable(UserSchema()),
		Questions: newMemoryTable(QuestionSchema()),
		Answers:   newMemoryTable(AnswerSchema()),
	}
}

type memoryTable[T any] struct {
	schema Schema[T]

	mu    sync.RWMutex
	rows  map[string]T
	order []string
}

func newMemoryTable[T any](schema Schema[T]) *memoryTable[T] {
	return &memoryTable[T]{schema: schema, rows: make(map[string]T)}
}

func (t *memoryTable[T]) Put(_ context.Context, rec *T) error {
	key := t.schema.Key(rec)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(key, *rec)
	return nil
}

func (t *memoryTable[T]) Get(_ context.Context, key string) (*T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (t *memoryTable[T]) Scan(_ context.Context) ([]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]T, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.rows[key])
	}
	return out, nil
}

func (t *memoryTable[T]) Query(_ context.Context, index, value string) ([]T, error) {
	idx, err := t.schema.index(index)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := []T{}
	for _, key := range t.order {
		row := t.rows[key]
		if idx.Value(&row) == value {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *memoryTable[T]) Increment(_ context.Context, key string, delta int64) error {
	if !t.schema.counted() {
		return ErrNoCounter
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[key]
	if !ok {
		row = *t.schema.NewCounter(key)
	}
	*t.schema.Votes(&row) += delta
	t.setLocked(key, row)
	return nil
}

func (t *memoryTable[T]) setLocked(key string, row T) {
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = row
}
