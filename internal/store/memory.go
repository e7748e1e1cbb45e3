package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dwjuston/axkan-ii-backen/internal/model"
)

// MemoryStore implements Store with in-memory maps. Records are lost on
// restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]int
	records []model.GameRecord // insertion order
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]int)}
}

func (s *MemoryStore) SaveResult(_ context.Context, rec *model.GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[rec.ID]; ok {
		return fmt.Errorf("%w: result %s", ErrDuplicate, rec.ID)
	}
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, clone(rec))
	return nil
}

func (s *MemoryStore) GetResult(_ context.Context, id string) (*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: result %s", ErrNotFound, id)
	}
	rec := clone(&s.records[i])
	return &rec, nil
}

func (s *MemoryStore) ListResultsByGame(_ context.Context, gameID string) ([]model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.GameRecord{}
	for i := range s.records {
		if s.records[i].GameID == gameID {
			result = append(result, clone(&s.records[i]))
		}
	}
	return result, nil
}

func (s *MemoryStore) GetPlayerStats(_ context.Context, playerID string) (*model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.StatsFor(playerID, s.records)
	if stats.Games == 0 {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	return &stats, nil
}

// clone copies rec so callers never share the Players slice with the store.
func clone(rec *model.GameRecord) model.GameRecord {
	c := *rec
	c.Players = append([]model.PlayerRecord(nil), rec.Players...)
	return c
}
