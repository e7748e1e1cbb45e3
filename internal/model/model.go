// Package model defines the archived records of finished games.
// Percentages use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TieSeat is the WinnerSeat of a drawn game.
const TieSeat = -1

// GameRecord is an immutable record of one finished game. A rematch in the
// same session produces a new record with the same GameID.
type GameRecord struct {
	ID           string         `json:"id" db:"id"`
	GameID       string         `json:"game_id" db:"game_id"`
	WinnerSeat   int            `json:"winner_seat" db:"winner_seat"` // TieSeat on a draw
	InitialPrice int            `json:"initial_price" db:"initial_price"`
	FinalPrice   int            `json:"final_price" db:"final_price"`
	FinishedAt   time.Time      `json:"finished_at" db:"finished_at"`
	Players      []PlayerRecord `json:"players"` // seat order
}

// Tie reports whether the game was drawn.
func (g *GameRecord) Tie() bool { return g.WinnerSeat == TieSeat }

// PlayerRecord is one player's final standing in a GameRecord.
type PlayerRecord struct {
	ResultID  string          `json:"result_id" db:"result_id"`
	PlayerID  string          `json:"player_id" db:"player_id"`
	Name      string          `json:"name" db:"name"`
	Seat      int             `json:"seat" db:"seat"`
	Cost      int             `json:"cost" db:"cost"`
	Value     int             `json:"value" db:"value"`
	PnL       int             `json:"pnl" db:"pnl"`
	ReturnPct decimal.Decimal `json:"return_pct" db:"return_pct"`
}

// Outcome is the record's result from this player's point of view:
// "win", "loss" or "tie".
func (g *GameRecord) Outcome(playerID string) string {
	if g.Tie() {
		return "tie"
	}
	for _, p := range g.Players {
		if p.PlayerID == playerID && p.Seat == g.WinnerSeat {
			return "win"
		}
	}
	return "loss"
}

// PlayerStats aggregates a player's archived results.
type PlayerStats struct {
	PlayerID     string          `json:"player_id"`
	Games        int             `json:"games"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	Ties         int             `json:"ties"`
	TotalPnL     int             `json:"total_pnl"`
	AvgReturnPct decimal.Decimal `json:"avg_return_pct"`
}

// StatsFor aggregates the records playerID took part in. Records without
// the player are skipped.
func StatsFor(playerID string, records []GameRecord) PlayerStats {
	stats := PlayerStats{PlayerID: playerID, AvgReturnPct: decimal.Zero}
	sum := decimal.Zero
	for i := range records {
		g := &records[i]
		for _, p := range g.Players {
			if p.PlayerID != playerID {
				continue
			}
			stats.Games++
			switch g.Outcome(playerID) {
			case "win":
				stats.Wins++
			case "tie":
				stats.Ties++
			default:
				stats.Losses++
			}
			stats.TotalPnL += p.PnL
			sum = sum.Add(p.ReturnPct)
		}
	}
	if stats.Games > 0 {
		stats.AvgReturnPct = sum.Div(decimal.NewFromInt(int64(stats.Games))).Round(2)
	}
	return stats
}
