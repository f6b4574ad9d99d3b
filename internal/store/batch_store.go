// Package store holds the offline batch table: a key-value cache of
// Batch records keyed by batch id.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"restock-sync/internal/domain"
)

// BatchStore is the local persisted batch cache
type BatchStore interface {
	// Upsert inserts or replaces the batch with the same id
	Upsert(ctx context.Context, batch domain.Batch) error
	Get(ctx context.Context, id string) (*domain.Batch, error)
	List(ctx context.Context) ([]domain.Batch, error)
	// Delete removes the batch; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error
	// DeleteByCustomSupply removes every batch referencing the custom supply and returns how many were removed
	DeleteByCustomSupply(ctx context.Context, customSupplyID int64) (int, error)
	// ReplaceCustomSupply points every batch referencing fromID at supply and returns how many changed
	ReplaceCustomSupply(ctx context.Context, fromID int64, supply domain.CustomSupply) (int, error)
	Close() error
}

var (
	ErrBatchNotFound = errors.New("batch not found")
	ErrMissingID     = errors.New("batch id is required")
)

// MemoryBatchStore keeps the cache in process memory
type MemoryBatchStore struct {
	mu      sync.RWMutex
	batches map[string]domain.Batch
}

func NewMemoryBatchStore() *MemoryBatchStore {
	return &MemoryBatchStore{
		batches: make(map[string]domain.Batch),
	}
}

func (s *MemoryBatchStore) Upsert(ctx context.Context, batch domain.Batch) error {
	if batch.ID == "" {
		return ErrMissingID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
	return nil
}

func (s *MemoryBatchStore) Get(ctx context.Context, id string) (*domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, exists := s.batches[id]
	if !exists {
		return nil, ErrBatchNotFound
	}
	return &batch, nil
}

func (s *MemoryBatchStore) List(ctx context.Context) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batches := make([]domain.Batch, 0, len(s.batches))
	for _, batch := range s.batches {
		batches = append(batches, batch)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].ID < batches[j].ID })
	return batches, nil
}

func (s *MemoryBatchStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, id)
	return nil
}

func (s *MemoryBatchStore) DeleteByCustomSupply(ctx context.Context, customSupplyID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, batch := range s.batches {
		if batch.CustomSupply.ID == customSupplyID {
			delete(s.batches, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryBatchStore) ReplaceCustomSupply(ctx context.Context, fromID int64, supply domain.CustomSupply) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for id, batch := range s.batches {
		if batch.CustomSupply.ID == fromID {
			batch.CustomSupply = supply
			s.batches[id] = batch
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryBatchStore) Close() error {
	return nil
}
