package selection

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/pivx-shield/pkg/consensus"
	"github.com/suffix-labs/pivx-shield/pkg/shield"
)

type coin struct {
	id    string
	value uint64
}

func (c coin) Value() uint64 { return c.value }
func (c coin) ID() string    { return c.id }

var shieldedShape = Shape{TransparentOutputs: 0, SaplingOutputs: 2}

func TestFee(t *testing.T) {
	assert.Equal(t, uint64(85_000), Fee(0, 0, 0, 0))
	assert.Equal(t, uint64(2_365_000), Fee(0, 0, 1, 2))
	assert.Equal(t, uint64(2_165_000), Fee(1, 1, 0, 2))

	// Every component strictly increases the fee.
	base := Fee(1, 1, 1, 1)
	assert.Greater(t, Fee(2, 1, 1, 1), base)
	assert.Greater(t, Fee(1, 2, 1, 1), base)
	assert.Greater(t, Fee(1, 1, 2, 1), base)
	assert.Greater(t, Fee(1, 1, 1, 2), base)
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		candidates []coin
		amount     uint64
		shape      Shape
		kind       Kind
		ids        []string
		sent       uint64
		fee        uint64
		change     uint64
	}{
		{
			name:       "stops once covered",
			candidates: []coin{{"a", 100_000_000}, {"b", 200_000_000}, {"c", 500_000_000}},
			amount:     250_000_000,
			shape:      shieldedShape,
			kind:       Shielded,
			ids:        []string{"a", "b"},
			sent:       250_000_000,
			fee:        2_749_000,
			change:     47_251_000,
		},
		{
			name:       "exact amount plus fee",
			candidates: []coin{{"a", 102_365_000}, {"b", 1}},
			amount:     100_000_000,
			shape:      shieldedShape,
			kind:       Shielded,
			ids:        []string{"a"},
			sent:       100_000_000,
			fee:        2_365_000,
			change:     0,
		},
		{
			name:       "underfunded takes fee from amount",
			candidates: []coin{{"a", 100_000_000}},
			amount:     100_000_000,
			shape:      shieldedShape,
			kind:       Shielded,
			ids:        []string{"a"},
			sent:       97_635_000,
			fee:        2_365_000,
			change:     0,
		},
		{
			name:       "transparent inputs",
			candidates: []coin{{"tx,0", 3_000_000}},
			amount:     500_000,
			shape:      Shape{TransparentOutputs: 1, SaplingOutputs: 2},
			kind:       Transparent,
			ids:        []string{"tx,0"},
			sent:       500_000,
			fee:        2_165_000,
			change:     335_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Select(tt.candidates, tt.amount, tt.shape, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.ids, res.IDs)
			assert.Len(t, res.Selected, len(tt.ids))
			assert.Equal(t, tt.sent, res.Amount)
			assert.Equal(t, tt.fee, res.Fee)
			assert.Equal(t, tt.change, res.Change)

			var total uint64
			for _, c := range res.Selected {
				total += c.Value()
			}
			assert.Equal(t, total, res.Amount+res.Fee+res.Change)
		})
	}
}

func TestSelectInsufficient(t *testing.T) {
	tests := []struct {
		name       string
		candidates []coin
		amount     uint64
	}{
		{name: "no candidates", candidates: nil, amount: 1},
		{name: "below amount", candidates: []coin{{"a", 5}}, amount: 10},
		{name: "amount not above fee", candidates: []coin{{"a", 1_000_000}}, amount: 1_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.candidates, tt.amount, shieldedShape, Shielded)
			var ierr *shield.InsufficientBalanceError
			require.True(t, errors.As(err, &ierr), "got %v", err)
			assert.Equal(t, tt.amount, ierr.Amount)
		})
	}
}

func TestSelectKeepsOrder(t *testing.T) {
	candidates := []coin{{"big", 900_000_000}, {"small", 1_000}}
	res, err := Select(candidates, 1_000_000, shieldedShape, Shielded)
	require.NoError(t, err)
	assert.Equal(t, []string{"big"}, res.IDs)
	assert.Equal(t, "big", candidates[0].id)

	SortAscending(candidates)
	assert.Equal(t, []string{"small", "big"}, []string{candidates[0].id, candidates[1].id})
	res, err = Select(candidates, 1_000_000, shieldedShape, Shielded)
	require.NoError(t, err)
	assert.Equal(t, []string{"small", "big"}, res.IDs)
}

func TestSelectRejectsOverflowingAmount(t *testing.T) {
	candidates := []coin{{"a", 10_000_000}}

	// amount+fee wraps around to a small number.
	_, err := Select(candidates, math.MaxUint64-1_000, shieldedShape, Shielded)
	assert.ErrorIs(t, err, shield.ErrAmountRange)

	_, err = Select(candidates, consensus.MaxMoney+1, shieldedShape, Shielded)
	assert.ErrorIs(t, err, shield.ErrAmountRange)

	_, err = Select(candidates, consensus.MaxMoney, shieldedShape, Shielded)
	var ierr *shield.InsufficientBalanceError
	require.True(t, errors.As(err, &ierr), "got %v", err)
}

func TestCoversDoesNotWrap(t *testing.T) {
	assert.True(t, covers(10, 5, 5))
	assert.False(t, covers(9, 5, 5))
	assert.False(t, covers(10, math.MaxUint64, 5))
	assert.False(t, covers(10, 5, math.MaxUint64))

	assert.Equal(t, uint64(math.MaxUint64), addSaturating(math.MaxUint64-1, 2))
	assert.Equal(t, uint64(3), addSaturating(1, 2))
}
