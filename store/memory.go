package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/sei-protocol/ckanpatch/entity"
)

// MemoryTable is a Table held in process memory.
type MemoryTable struct {
	mu   sync.RWMutex
	data map[entity.Kind]map[string][]byte
}

// NewMemoryTable returns an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{data: make(map[entity.Kind]map[string][]byte)}
}

func (m *MemoryTable) Get(ctx context.Context, kind entity.Kind, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.data[kind][id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return slices.Clone(body), nil
}

func (m *MemoryTable) Put(ctx context.Context, kind entity.Kind, id string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.data[kind]
	if !ok {
		bucket = make(map[string][]byte)
		m.data[kind] = bucket
	}
	bucket[id] = slices.Clone(body)
	return nil
}

func (m *MemoryTable) Scan(ctx context.Context, kind entity.Kind, fn func(id string, body []byte) error) error {
	m.mu.RLock()
	bucket := m.data[kind]
	ids := make([]string, 0, len(bucket))
	bodies := make(map[string][]byte, len(bucket))
	for id, body := range bucket {
		ids = append(ids, id)
		bodies[id] = slices.Clone(body)
	}
	m.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id, bodies[id]); err != nil {
			if errors.Is(err, ErrStopScan) {
				return nil
			}
			return err
		}
	}
	return nil
}
