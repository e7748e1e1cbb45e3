package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func record(winner int, a, b PlayerRecord) GameRecord {
	a.Seat, b.Seat = 0, 1
	return GameRecord{WinnerSeat: winner, Players: []PlayerRecord{a, b}}
}

func TestOutcome(t *testing.T) {
	g := record(1, PlayerRecord{PlayerID: "a"}, PlayerRecord{PlayerID: "b"})
	assert.Equal(t, "loss", g.Outcome("a"))
	assert.Equal(t, "win", g.Outcome("b"))
	assert.Equal(t, "loss", g.Outcome("stranger"))

	g.WinnerSeat = TieSeat
	assert.True(t, g.Tie())
	assert.Equal(t, "tie", g.Outcome("a"))
}

func TestStatsFor(t *testing.T) {
	pct := decimal.RequireFromString
	records := []GameRecord{
		record(0, PlayerRecord{PlayerID: "a", PnL: 4, ReturnPct: pct("10")}, PlayerRecord{PlayerID: "b"}),
		record(TieSeat, PlayerRecord{PlayerID: "b"}, PlayerRecord{PlayerID: "a", PnL: 2, ReturnPct: pct("5")}),
		record(1, PlayerRecord{PlayerID: "a", PnL: -3, ReturnPct: pct("-4")}, PlayerRecord{PlayerID: "b"}),
		record(0, PlayerRecord{PlayerID: "c"}, PlayerRecord{PlayerID: "b"}),
	}

	stats := StatsFor("a", records)
	assert.Equal(t, 3, stats.Games)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Ties)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 3, stats.TotalPnL)
	assert.Equal(t, "3.67", stats.AvgReturnPct.StringFixed(2))

	none := StatsFor("nobody", records)
	assert.Zero(t, none.Games)
	assert.True(t, none.AvgReturnPct.IsZero())
}
