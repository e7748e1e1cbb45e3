package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dwjuston/axkan-ii-backen/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary. Redis errors are never
// fatal: a failed cache read is a miss.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
		logger:  slog.Default(),
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) SaveResult(ctx context.Context, rec *model.GameRecord) error {
	if err := s.primary.SaveResult(ctx, rec); err != nil {
		return err
	}
	keys := make([]string, 0, len(rec.Players)+1)
	keys = append(keys, historyKey(rec.GameID))
	for _, p := range rec.Players {
		keys = append(keys, statsKey(p.PlayerID))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		// Stale history and stats are served until their TTL expires.
		s.logger.WarnContext(ctx, "cache invalidation failed",
			"result_id", rec.ID, "keys", keys, "ttl", s.ttl, "err", err)
	}
	s.cache(ctx, resultKey(rec.ID), rec)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetResult(ctx context.Context, id string) (*model.GameRecord, error) {
	var rec model.GameRecord
	if s.lookup(ctx, resultKey(id), &rec) {
		return &rec, nil
	}

	got, err := s.primary.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, resultKey(id), got)
	return got, nil
}

func (s *CachedStore) ListResultsByGame(ctx context.Context, gameID string) ([]model.GameRecord, error) {
	var records []model.GameRecord
	if s.lookup(ctx, historyKey(gameID), &records) {
		return records, nil
	}

	records, err := s.primary.ListResultsByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, historyKey(gameID), records)
	return records, nil
}

func (s *CachedStore) GetPlayerStats(ctx context.Context, playerID string) (*model.PlayerStats, error) {
	var stats model.PlayerStats
	if s.lookup(ctx, statsKey(playerID), &stats) {
		return &stats, nil
	}

	got, err := s.primary.GetPlayerStats(ctx, playerID)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, statsKey(playerID), got)
	return got, nil
}

// --- Cache helpers ---

func (s *CachedStore) lookup(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func resultKey(id string) string      { return fmt.Sprintf("axkan:result:%s", id) }
func historyKey(gameID string) string { return fmt.Sprintf("axkan:history:%s", gameID) }
func statsKey(pid string) string      { return fmt.Sprintf("axkan:stats:%s", pid) }
