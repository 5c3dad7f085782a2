package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSelectionsSingle(t *testing.T) {
	count, sel, mask, err := DeriveSelections(TypeSingleNumber, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), count)
	assert.Equal(t, uint8(3), sel[0])
	assert.Equal(t, uint16(1<<3), mask)
}

func TestDeriveSelectionsDigitsCanonicalOrder(t *testing.T) {
	count, sel, mask, err := DeriveSelections(TypeMultiNumber, 7895, 2)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), count)
	assert.Equal(t, []uint8{5, 7, 8, 9}, sel[:4])
	assert.Equal(t, uint16(1<<5|1<<7|1<<8|1<<9), mask)
}

func TestDeriveSelectionsRejectsDuplicates(t *testing.T) {
	_, _, _, err := DeriveSelections(TypeTwoNumbers, 33, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDeriveSelectionsRejectsZeroDigit(t *testing.T) {
	// 104 contains digit 0
	_, _, _, err := DeriveSelections(TypeMultiNumber, 104, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDeriveSelectionsRejectsBlockedNumber(t *testing.T) {
	_, _, _, err := DeriveSelections(TypeSingleNumber, 5, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, _, _, err = DeriveSelections(TypeTwoNumbers, 35, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDeriveSelectionsRejectsDisabledPool(t *testing.T) {
	// blocked == 0 means the pool has no blocked number assigned yet
	_, _, _, err := DeriveSelections(TypeSingleNumber, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDeriveSelectionsCountBounds(t *testing.T) {
	// two-number type must decode exactly 2 digits
	_, _, _, err := DeriveSelections(TypeTwoNumbers, 3, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	// multi requires at least 3
	_, _, _, err = DeriveSelections(TypeMultiNumber, 37, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)

	// all 8 eligible numbers is the maximum
	count, sel, _, err := DeriveSelections(TypeMultiNumber, 12346789, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(8), count)
	assert.Equal(t, []uint8{1, 2, 3, 4, 6, 7, 8, 9}, sel[:8])
}

func TestDeriveSelectionsHighLow(t *testing.T) {
	// eligible with blocked=5: [1 2 3 4 6 7 8 9]
	count, sel, _, err := DeriveSelections(TypeHighLow, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), count)
	assert.Equal(t, []uint8{1, 2, 3, 4}, sel[:4])

	count, sel, _, err = DeriveSelections(TypeHighLow, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), count)
	assert.Equal(t, []uint8{6, 7, 8, 9}, sel[:4])

	// the blocked number shifts the split
	_, sel, _, err = DeriveSelections(TypeHighLow, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint8{2, 3, 4, 5}, sel[:4])

	_, _, _, err = DeriveSelections(TypeHighLow, 2, 5)
	assert.ErrorIs(t, err, ErrInvalidSelection)
}

func TestDeriveSelectionsEvenOdd(t *testing.T) {
	count, sel, _, err := DeriveSelections(TypeEvenOdd, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), count)
	assert.Equal(t, []uint8{2, 4, 6, 8}, sel[:4])

	count, sel, _, err = DeriveSelections(TypeEvenOdd, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), count)
	assert.Equal(t, []uint8{1, 3, 7, 9}, sel[:4])

	// blocking an even number shrinks the even side
	count, sel, _, err = DeriveSelections(TypeEvenOdd, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), count)
	assert.Equal(t, []uint8{2, 6, 8}, sel[:3])
}
