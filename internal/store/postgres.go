package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dwjuston/axkan-ii-backen/internal/model"
)

// schema is applied by EnsureSchema. Return percentages are NUMERIC for
// exact decimal precision.
const schema = `
CREATE TABLE IF NOT EXISTS game_results (
	id            UUID PRIMARY KEY,
	game_id       UUID NOT NULL,
	winner_seat   SMALLINT NOT NULL,
	initial_price SMALLINT NOT NULL,
	final_price   SMALLINT NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS game_results_game_id_idx ON game_results (game_id, finished_at);

CREATE TABLE IF NOT EXISTS player_results (
	result_id  UUID NOT NULL REFERENCES game_results (id),
	player_id  UUID NOT NULL,
	name       TEXT NOT NULL,
	seat       SMALLINT NOT NULL,
	cost       INTEGER NOT NULL,
	value      INTEGER NOT NULL,
	pnl        INTEGER NOT NULL,
	return_pct NUMERIC(10, 2) NOT NULL,
	PRIMARY KEY (result_id, seat)
);
CREATE INDEX IF NOT EXISTS player_results_player_id_idx ON player_results (player_id);
`

// PostgresStore implements Store using PostgreSQL as the source of truth.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the archive tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveResult writes the game row and its player rows in one transaction.
func (s *PostgresStore) SaveResult(ctx context.Context, rec *model.GameRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx,
		`INSERT INTO game_results (id, game_id, winner_seat, initial_price, final_price, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.GameID, rec.WinnerSeat, rec.InitialPrice, rec.FinalPrice, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result %s: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: result %s", ErrDuplicate, rec.ID)
	}

	for _, p := range rec.Players {
		if _, err := tx.Exec(ctx,
			`INSERT INTO player_results (result_id, player_id, name, seat, cost, value, pnl, return_pct)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::NUMERIC)`,
			rec.ID, p.PlayerID, p.Name, p.Seat, p.Cost, p.Value, p.PnL, p.ReturnPct.String(),
		); err != nil {
			return fmt.Errorf("insert player result %s/%d: %w", rec.ID, p.Seat, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetResult(ctx context.Context, id string) (*model.GameRecord, error) {
	id, ok := canonicalID(id)
	if !ok {
		return nil, fmt.Errorf("%w: result %s", ErrNotFound, id)
	}
	var rec model.GameRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id::TEXT, game_id::TEXT, winner_seat, initial_price, final_price, finished_at
		 FROM game_results WHERE id = $1`, id).
		Scan(&rec.ID, &rec.GameID, &rec.WinnerSeat, &rec.InitialPrice, &rec.FinalPrice, &rec.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: result %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get result %s: %w", id, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT result_id::TEXT, player_id::TEXT, name, seat, cost, value, pnl, return_pct::TEXT
		 FROM player_results WHERE result_id = $1 ORDER BY seat`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players, err := scanPlayerResults(rows)
	if err != nil {
		return nil, err
	}
	rec.Players = players[id]
	return &rec, nil
}

func (s *PostgresStore) ListResultsByGame(ctx context.Context, gameID string) ([]model.GameRecord, error) {
	gameID, ok := canonicalID(gameID)
	if !ok {
		return []model.GameRecord{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, game_id::TEXT, winner_seat, initial_price, final_price, finished_at
		 FROM game_results WHERE game_id = $1 ORDER BY finished_at`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.GameRecord{}
	for rows.Next() {
		var rec model.GameRecord
		if err := rows.Scan(&rec.ID, &rec.GameID, &rec.WinnerSeat,
			&rec.InitialPrice, &rec.FinalPrice, &rec.FinishedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.pool.Query(ctx,
		`SELECT p.result_id::TEXT, p.player_id::TEXT, p.name, p.seat, p.cost, p.value, p.pnl, p.return_pct::TEXT
		 FROM player_results p
		 JOIN game_results g ON g.id = p.result_id
		 WHERE g.game_id = $1
		 ORDER BY p.seat`, gameID)
	if err != nil {
		return nil, err
	}
	defer prows.Close()

	players, err := scanPlayerResults(prows)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Players = players[records[i].ID]
	}
	return records, nil
}

func (s *PostgresStore) GetPlayerStats(ctx context.Context, playerID string) (*model.PlayerStats, error) {
	playerID, ok := canonicalID(playerID)
	if !ok {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	stats := model.PlayerStats{PlayerID: playerID}
	var avgS string
	err := s.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE g.winner_seat = p.seat),
			COUNT(*) FILTER (WHERE g.winner_seat = -1),
			COALESCE(SUM(p.pnl), 0),
			COALESCE(ROUND(AVG(p.return_pct), 2), 0)::TEXT
		 FROM player_results p
		 JOIN game_results g ON g.id = p.result_id
		 WHERE p.player_id = $1`, playerID).
		Scan(&stats.Games, &stats.Wins, &stats.Ties, &stats.TotalPnL, &avgS)
	if err != nil {
		return nil, fmt.Errorf("player stats %s: %w", playerID, err)
	}
	if stats.Games == 0 {
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	stats.Losses = stats.Games - stats.Wins - stats.Ties
	stats.AvgReturnPct, _ = decimal.NewFromString(avgS)
	return &stats, nil
}

// canonicalID normalizes id to the hyphenated form a UUID column accepts.
// An id that is not a UUID cannot match any row. On failure id is returned
// unchanged for error messages.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return id, false
	}
	return u.String(), true
}

// pgxRows is the subset of pgx.Rows the scanners need.
type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPlayerResults groups player rows by result id.
func scanPlayerResults(rows pgxRows) (map[string][]model.PlayerRecord, error) {
	out := make(map[string][]model.PlayerRecord)
	for rows.Next() {
		var p model.PlayerRecord
		var pctS string
		if err := rows.Scan(&p.ResultID, &p.PlayerID, &p.Name, &p.Seat,
			&p.Cost, &p.Value, &p.PnL, &pctS); err != nil {
			return nil, err
		}
		p.ReturnPct, _ = decimal.NewFromString(pctS)
		out[p.ResultID] = append(out[p.ResultID], p)
	}
	return out, rows.Err()
}
