package engine

// Pool accumulates stakes for the currently open epoch of one tier.
//
// Invariant: the per-number arrays sum to the totals. Exactly one pool
// exists per tier; it is reset wholesale at epoch close, carrying state
// forward when the concluded epoch rolled over.
type Pool struct {
	Epoch             uint64 `json:"epoch"`
	FirstEpochInChain uint64 `json:"first_epoch_in_chain"`

	TotalValue   uint64 `json:"total_value"`
	CarriedValue uint64 `json:"carried_value"`

	TotalStakes   uint32 `json:"total_stakes"`
	CarriedStakes uint32 `json:"carried_stakes"`

	CutoffTicks uint64 `json:"cutoff_ticks"`
	Tier        uint8  `json:"tier"`

	// EpochsCarried counts consecutive rollovers in the current chain.
	EpochsCarried uint8 `json:"epochs_carried"`

	ValuePerNumber  [10]uint64 `json:"value_per_number"`
	StakesPerNumber [10]uint32 `json:"stakes_per_number"`

	// BlockedNumber is excluded from selection and rotates with rollovers.
	// 0 disables staking until a reset assigns one.
	BlockedNumber uint8  `json:"blocked_number"`
	FeeBps        uint16 `json:"fee_bps"`
}

// NewPool opens a pool for a brand-new chain starting at epoch.
func NewPool(epoch uint64, cutoffTicks uint64, tier uint8, feeBps uint16) *Pool {
	return &Pool{
		Epoch:             epoch,
		FirstEpochInChain: epoch,
		CutoffTicks:       cutoffTicks,
		Tier:              tier,
		FeeBps:            feeBps,
	}
}

// ResetForNewEpoch advances the pool into newEpoch. Nonzero carry values
// continue the current chain; otherwise a new chain begins.
func (p *Pool) ResetForNewEpoch(
	newEpoch uint64,
	cutoffTicks uint64,
	carryValue uint64,
	carryStakes uint32,
	valuePerNumber [10]uint64,
	stakesPerNumber [10]uint32,
	nextBlocked uint8,
	nextFeeBps uint16,
) {
	p.Epoch = newEpoch
	p.CutoffTicks = cutoffTicks
	p.FeeBps = nextFeeBps

	if carryValue > 0 || carryStakes > 0 {
		p.TotalValue = carryValue
		p.CarriedValue = carryValue
		p.TotalStakes = carryStakes
		p.CarriedStakes = carryStakes
		p.ValuePerNumber = valuePerNumber
		p.StakesPerNumber = stakesPerNumber

		p.EpochsCarried++
		if p.EpochsCarried == 0 { // wrapped; clamp rather than restart the count
			p.EpochsCarried = 1
		}
		return
	}

	p.FirstEpochInChain = newEpoch
	p.EpochsCarried = 0
	p.TotalValue = 0
	p.CarriedValue = 0
	p.TotalStakes = 0
	p.CarriedStakes = 0
	p.BlockedNumber = nextBlocked
	p.ValuePerNumber = [10]uint64{}
	p.StakesPerNumber = [10]uint32{}
}

// IsEmpty reports whether nothing is at stake in the current chain.
func (p *Pool) IsEmpty() bool {
	return p.TotalValue == 0 && p.CarriedValue == 0 &&
		p.TotalStakes == 0 && p.CarriedStakes == 0
}

// applySelections adds valuePerNumber to each selected number's bucket.
func (p *Pool) applySelections(valuePerNumber uint64, selections [MaxSelections]uint8, count uint8) error {
	if valuePerNumber == 0 {
		return ErrInvalidAmount
	}
	if count < 1 || count > MaxSelections {
		return ErrInvalidSelection
	}
	for i := 0; i < int(count); i++ {
		n := selections[i]
		if n < 1 || n > 9 {
			return ErrInvalidSelection
		}
		v, err := addU64(p.ValuePerNumber[n], valuePerNumber)
		if err != nil {
			return err
		}
		p.ValuePerNumber[n] = v
	}
	return nil
}

// retractSelections removes valuePerNumber from each selected number's
// bucket. A bucket smaller than the retraction means the pool state is
// corrupted.
func (p *Pool) retractSelections(valuePerNumber uint64, selections [MaxSelections]uint8, count uint8) error {
	if valuePerNumber == 0 {
		return ErrInvalidAmount
	}
	if count < 1 || count > MaxSelections {
		return ErrInvalidSelection
	}
	for i := 0; i < int(count); i++ {
		n := selections[i]
		if n < 1 || n > 9 {
			return ErrInvalidSelection
		}
		if p.ValuePerNumber[n] < valuePerNumber {
			return ErrPoolCorrupted
		}
		v, err := subU64(p.ValuePerNumber[n], valuePerNumber)
		if err != nil {
			return err
		}
		p.ValuePerNumber[n] = v
	}
	return nil
}

// nextBlockedNumber rotates the blocked number after settlement: a winning
// number of 0 or one equal to the current blocked number keeps it, any
// other winning number becomes the new blocked number.
func nextBlockedNumber(winningNumber, currentBlocked uint8) uint8 {
	if winningNumber == 0 || winningNumber == currentBlocked {
		return currentBlocked
	}
	return winningNumber
}
