package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwjuston/axkan-ii-backen/internal/random"
)

func TestNewPile_Counts(t *testing.T) {
	p := NewPile(random.NewSeeded(1, 1))
	small, big := p.Remaining()
	assert.Equal(t, 24, small)
	assert.Equal(t, 24, big)
}

func TestDrawPair_DrainsWithoutDuplicates(t *testing.T) {
	p := NewPile(random.NewSeeded(3, 9))
	seen := make(map[Card]bool)

	for i := 0; i < 24; i++ {
		pair, ok := p.DrawPair()
		require.True(t, ok, "draw %d", i)
		require.Equal(t, Small, pair.Small().Category())
		require.Equal(t, Big, pair.Big().Category())
		require.False(t, seen[pair.Small()], "duplicate %v", pair.Small())
		require.False(t, seen[pair.Big()], "duplicate %v", pair.Big())
		seen[pair.Small()] = true
		seen[pair.Big()] = true
	}

	_, ok := p.DrawPair()
	assert.False(t, ok, "pile should be exhausted after 24 pairs")
	assert.Len(t, seen, 48)
}

func TestDrawSevens_Distinct(t *testing.T) {
	p := NewPile(random.NewSeeded(11, 2))
	for i := 0; i < 200; i++ {
		s := p.DrawSevens()
		require.NotEqual(t, s[0], s[1])
		require.True(t, s[0].IsSeven())
		require.True(t, s[1].IsSeven())
	}
	small, big := p.Remaining()
	assert.Equal(t, 24, small, "sevens do not deplete the pools")
	assert.Equal(t, 24, big)
}

func TestDrawSevens_CoversAllSuits(t *testing.T) {
	p := NewPile(random.NewSeeded(8, 8))
	suits := make(map[Suit]bool)
	for i := 0; i < 100; i++ {
		for _, s := range p.DrawSevens() {
			suits[s.Suit] = true
		}
	}
	assert.Len(t, suits, 4)
}
