package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/halonet/billing-engine/internal/domain/checkpoint"
)

// InMemoryCheckpointStore implements checkpoint.Repository
type InMemoryCheckpointStore struct {
	mu    sync.RWMutex
	fired map[string]*checkpoint.FiredCheckpoint
}

// NewInMemoryCheckpointStore creates a new in-memory fired-checkpoint store
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{
		fired: make(map[string]*checkpoint.FiredCheckpoint),
	}
}

func (s *InMemoryCheckpointStore) MarkFired(ctx context.Context, fc *checkpoint.FiredCheckpoint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fired[fc.IdempotencyKey]; ok {
		return true, nil
	}
	copied := *fc
	s.fired[fc.IdempotencyKey] = &copied
	return false, nil
}

func (s *InMemoryCheckpointStore) ListByClient(ctx context.Context, clientID string) ([]*checkpoint.FiredCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*checkpoint.FiredCheckpoint, 0)
	for _, fc := range s.fired {
		if fc.ClientID == clientID {
			copied := *fc
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].FiredAt.After(result[j].FiredAt)
	})
	return result, nil
}

// Clear removes all records
func (s *InMemoryCheckpointStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired = make(map[string]*checkpoint.FiredCheckpoint)
}
