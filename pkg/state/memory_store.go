package state

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore is an in-memory Store for tests and examples. It keys records by
// Ref.Identifier() and issues a new revision ETag on every save.
type MemoryStore[T any] struct {
	mu       sync.RWMutex
	records  map[string]memoryRecord[T]
	revision uint64
}

type memoryRecord[T any] struct {
	snapshot T
	meta     Meta
}

func NewMemoryStore[T any]() *MemoryStore[T] {
	return &MemoryStore[T]{records: map[string]memoryRecord[T]{}}
}

func (s *MemoryStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return zero, Meta{}, false, nil
	}
	return record.snapshot, cloneMeta(record.meta), true, nil
}

func (s *MemoryStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.revision++
	stored := cloneMeta(meta)
	stored.ETag = strconv.FormatUint(s.revision, 10)
	if stored.SnapshotID == "" {
		stored.SnapshotID = key + "@" + stored.ETag
	}
	s.records[key] = memoryRecord[T]{snapshot: snapshot, meta: stored}
	s.mu.Unlock()
	return cloneMeta(stored), nil
}

// Len reports how many snapshots are stored.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
