package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwjuston/axkan-ii-backen/internal/errs"
	"github.com/dwjuston/axkan-ii-backen/internal/random"
)

// fixed returns the same face index every time.
type fixed int

func (f fixed) IntN(n int) int { return int(f) % n }

func TestParse(t *testing.T) {
	c, err := Parse("soft_landing")
	require.NoError(t, err)
	assert.Equal(t, SoftLanding, c)

	_, err = Parse("hyperinflation")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestThrow_Composition(t *testing.T) {
	tests := []struct {
		c        Collection
		pos, neg int
		extra    int
	}{
		{Initial, 1, 0, 0},
		{Regular, 1, 1, 0},
		{Inflation, 2, 1, 0},
		{Tapering, 1, 2, 0},
		{Stimulus, 1, 0, 0},
		{Tariff, 0, 1, 0},
		{SoftLanding, 1, 1, 1},
		{SupplyShock, 1, 1, -1},
	}
	rng := random.NewSeeded(4, 4)
	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			for i := 0; i < 50; i++ {
				r, err := Throw(rng, tt.c)
				require.NoError(t, err)
				require.Len(t, r.Values, tt.pos+tt.neg)
				sum := 0
				for j, v := range r.Values {
					if j < tt.pos {
						require.True(t, v >= 1 && v <= 6, "positive die %d", v)
					} else {
						require.True(t, v <= -1 && v >= -6, "negative die %d", v)
					}
					sum += v
				}
				require.Equal(t, tt.extra, r.Extra)
				require.Equal(t, sum+tt.extra, r.Total)

				lo, hi, err := tt.c.bounds()
				require.NoError(t, err)
				require.True(t, r.Total >= lo && r.Total <= hi)
			}
		})
	}
}

func TestThrow_Unknown(t *testing.T) {
	_, err := Throw(fixed(0), Collection("bogus"))
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestInitialPrice(t *testing.T) {
	for face := 0; face < 6; face++ {
		r, err := Throw(fixed(face), Initial)
		require.NoError(t, err)
		want := 10
		if face+1 >= 4 {
			want = 11
		}
		assert.Equal(t, want, InitialPrice(r), "face %d", face+1)
	}
}

func TestApplyDelta_Wraps(t *testing.T) {
	assert.Equal(t, 15, ApplyDelta(10, 5))
	assert.Equal(t, 20, ApplyDelta(15, 5))
	assert.Equal(t, 1, ApplyDelta(15, 6))
	assert.Equal(t, 20, ApplyDelta(3, -3))
	assert.Equal(t, 19, ApplyDelta(3, -4))
}

func TestApplyDelta_StaysInRangeForEveryCollection(t *testing.T) {
	for c := range collections {
		lo, hi, err := c.bounds()
		require.NoError(t, err)
		for price := MinPrice; price <= MaxPrice; price++ {
			for delta := lo; delta <= hi; delta++ {
				got := ApplyDelta(price, delta)
				require.True(t, got >= MinPrice && got <= MaxPrice,
					"%s: %d%+d -> %d", c, price, delta, got)
			}
		}
	}
}

func TestSpecial(t *testing.T) {
	assert.False(t, Regular.Special())
	assert.False(t, Initial.Special())
	assert.True(t, Inflation.Special())
	assert.True(t, SupplyShock.Special())
}
