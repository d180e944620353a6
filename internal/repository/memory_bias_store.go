package repository

import (
	"context"
	"sync"
	"time"

	"MacroLearn/internal/domain/models"
	domrepo "MacroLearn/internal/domain/repository"
)

// MemoryBiasStore is an in-process BiasStore. Used when Redis is disabled
// and as the test double for cycle-level tests.
type MemoryBiasStore struct {
	mu     sync.Mutex
	states map[string]models.BiasState
}

var _ domrepo.BiasStore = (*MemoryBiasStore)(nil)

func NewMemoryBiasStore() *MemoryBiasStore {
	return &MemoryBiasStore{states: make(map[string]models.BiasState)}
}

func (s *MemoryBiasStore) Read(ctx context.Context, assetID string) (models.BiasState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[assetID]; ok {
		return st, nil
	}
	return models.NeutralBias(assetID), nil
}

// ApplyDeltas commits the whole batch under one lock, mirroring the
// all-or-nothing semantics of the Redis transaction.
func (s *MemoryBiasStore) ApplyDeltas(ctx context.Context, deltas map[string]models.BiasDelta) ([]models.BiasState, error) {
	if len(deltas) == 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	updated := make([]models.BiasState, 0, len(deltas))
	for assetID, d := range deltas {
		cur, ok := s.states[assetID]
		if !ok {
			cur = models.NeutralBias(assetID)
		}
		next := models.BiasState{
			AssetID:     assetID,
			BullBias:    models.ClampBias(cur.BullBias + d.Bull),
			BearBias:    models.ClampBias(cur.BearBias + d.Bear),
			VolBias:     models.ClampBias(cur.VolBias + d.Vol),
			Version:     cur.Version + 1,
			LastUpdated: now,
		}
		if !next.LastUpdated.After(cur.LastUpdated) {
			next.LastUpdated = cur.LastUpdated.Add(time.Nanosecond)
		}
		s.states[assetID] = next
		updated = append(updated, next)
	}
	return updated, nil
}

func (s *MemoryBiasStore) Health(ctx context.Context) error { return nil }
