package engine

// Prediction is one player's stake on a selection set for a game chain.
// Created once per (player, chain, tier); mutable while the pool for the
// tier is open and the record is unclaimed; frozen after claim.
type Prediction struct {
	// ChainEpoch is the first epoch in the chain (stable game id).
	ChainEpoch uint64 `json:"chain_epoch"`
	// Epoch the prediction was placed in (>= ChainEpoch across rollovers).
	Epoch  uint64 `json:"epoch"`
	Player string `json:"player"`
	Tier   uint8  `json:"tier"`

	Type           uint8                 `json:"type"`
	SelectionCount uint8                 `json:"selection_count"`
	SelectionsMask uint16                `json:"selections_mask"`
	Selections     [MaxSelections]uint8  `json:"selections"`

	// TotalValue == ValuePerNumber * SelectionCount at all times.
	TotalValue     uint64 `json:"total_value"`
	ValuePerNumber uint64 `json:"value_per_number"`

	ChangedCount uint8  `json:"changed_count"`
	PlacedTick   uint64 `json:"placed_tick"`
	PlacedAt     int64  `json:"placed_at"`
	UpdatedAt    int64  `json:"updated_at"`

	Claimed   bool  `json:"claimed"`
	ClaimedAt int64 `json:"claimed_at"`
}

func (p *Prediction) expectedTotal() uint64 {
	k := uint64(p.SelectionCount)
	if k == 0 {
		k = 1
	}
	total, err := mulU64(p.ValuePerNumber, k)
	if err != nil {
		return 0
	}
	return total
}

// checkInvariant verifies TotalValue == ValuePerNumber * SelectionCount.
func (p *Prediction) checkInvariant() error {
	if p.TotalValue != p.expectedTotal() {
		return ErrPoolCorrupted
	}
	return nil
}

// recomputeMask rebuilds the bitmask from the stored selection list, and
// validates each entry. Used as a corruption guard before trusting the
// stored mask.
func (p *Prediction) recomputeMask() (uint16, error) {
	k := int(p.SelectionCount)
	if k < 1 || k > MaxSelections {
		return 0, ErrInvalidSelection
	}
	var mask uint16
	for i := 0; i < k; i++ {
		n := p.Selections[i]
		if n < 1 || n > 9 {
			return 0, ErrInvalidSelection
		}
		mask |= uint16(1) << n
	}
	return mask, nil
}
