package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolResetCarryContinuesChain(t *testing.T) {
	p := NewPool(10, 150, 1, 500)
	p.BlockedNumber = 5
	p.TotalValue = 1_000
	p.TotalStakes = 3
	p.ValuePerNumber[3] = 1_000
	p.StakesPerNumber[3] = 3

	values := p.ValuePerNumber
	counts := p.StakesPerNumber
	p.ResetForNewEpoch(11, 150, 1_000, 3, values, counts, 7, 400)

	assert.Equal(t, uint64(11), p.Epoch)
	assert.Equal(t, uint64(10), p.FirstEpochInChain, "chain id survives a carry")
	assert.Equal(t, uint64(1_000), p.CarriedValue)
	assert.Equal(t, uint32(3), p.CarriedStakes)
	assert.Equal(t, uint8(1), p.EpochsCarried)
	assert.Equal(t, uint8(5), p.BlockedNumber, "blocked number unchanged while the chain continues")
	assert.Equal(t, uint16(400), p.FeeBps)
}

func TestPoolResetFreshStartsNewChain(t *testing.T) {
	p := NewPool(10, 150, 1, 500)
	p.BlockedNumber = 5
	p.EpochsCarried = 3
	p.ValuePerNumber[3] = 999

	p.ResetForNewEpoch(11, 150, 0, 0, [10]uint64{}, [10]uint32{}, 7, 500)

	assert.Equal(t, uint64(11), p.FirstEpochInChain)
	assert.Equal(t, uint8(0), p.EpochsCarried)
	assert.Equal(t, uint8(7), p.BlockedNumber, "fresh chain adopts the next blocked number")
	assert.True(t, p.IsEmpty())
	assert.Equal(t, [10]uint64{}, p.ValuePerNumber)
}

func TestPoolEpochsCarriedWrapClampsToOne(t *testing.T) {
	p := NewPool(10, 150, 1, 500)
	p.EpochsCarried = 255
	p.ResetForNewEpoch(11, 150, 1, 1, [10]uint64{}, [10]uint32{}, 7, 500)
	assert.Equal(t, uint8(1), p.EpochsCarried)
}

func TestPoolRetractUnderflowIsCorruption(t *testing.T) {
	p := NewPool(10, 150, 1, 500)
	p.ValuePerNumber[3] = 50

	sel := [MaxSelections]uint8{3}
	err := p.retractSelections(100, sel, 1)
	require.ErrorIs(t, err, ErrPoolCorrupted)
}

func TestNextBlockedNumber(t *testing.T) {
	assert.Equal(t, uint8(5), nextBlockedNumber(0, 5), "0 keeps the blocked number")
	assert.Equal(t, uint8(5), nextBlockedNumber(5, 5), "a blocked-number hit keeps it")
	assert.Equal(t, uint8(3), nextBlockedNumber(3, 5), "any other winner becomes the new blocked number")
}
