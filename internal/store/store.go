// Package store defines the result archive. Finished games are recorded
// here; games in progress live only in the session layer.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and single-process runs).
package store

import (
	"context"
	"fmt"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/model"
)

var (
	ErrNotFound  = fmt.Errorf("%w: store: record not found", errs.ErrNotFound)
	ErrDuplicate = fmt.Errorf("%w: store: record already exists", errs.ErrValidation)
)

// Store is the archive interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
type Store interface {
	// SaveResult appends an immutable game record.
	SaveResult(ctx context.Context, rec *model.GameRecord) error

	// GetResult retrieves a record by its ID.
	GetResult(ctx context.Context, id string) (*model.GameRecord, error)

	// ListResultsByGame returns every record of a game session, oldest first.
	ListResultsByGame(ctx context.Context, gameID string) ([]model.GameRecord, error)

	// GetPlayerStats aggregates a player's records. A player with no
	// records is ErrNotFound.
	GetPlayerStats(ctx context.Context, playerID string) (*model.PlayerStats, error)
}
