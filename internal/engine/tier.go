package engine

// TierSettings configures one stake tier.
type TierSettings struct {
	ID                  uint8  `json:"id"`
	Active              bool   `json:"active"`
	MinStake            uint64 `json:"min_stake"`
	MaxStake            uint64 `json:"max_stake"`
	TicketRewardBps     uint16 `json:"ticket_reward_bps"`
	TicketRewardMax     uint16 `json:"ticket_reward_max"`
	TicketsPerRecipient uint8  `json:"tickets_per_recipient"`
}

// InRange reports whether a per-number stake value sits inside the tier's
// [min, max] band.
func (t TierSettings) InRange(value uint64) bool {
	return value >= t.MinStake && value <= t.MaxStake
}

// Settings is the persisted protocol configuration: pause flags, fee
// parameters and tier table. Bootstrapped once from the config file,
// mutated only by admin operations.
type Settings struct {
	PauseStaking bool   `json:"pause_staking"`
	PauseClaims  bool   `json:"pause_claims"`
	Authority    string `json:"authority"`

	BaseFeeBps         uint16 `json:"base_fee_bps"`
	MinFeeBps          uint16 `json:"min_fee_bps"`
	RolloverFeeStepBps uint16 `json:"rollover_fee_step_bps"`
	StakeCutoffTicks   uint64 `json:"stake_cutoff_ticks"`

	StartedAt    int64  `json:"started_at"`
	StartedEpoch uint64 `json:"started_epoch"`

	Tiers []TierSettings `json:"tiers"`
}

// Tier returns the settings for a tier id.
func (s *Settings) Tier(id uint8) (TierSettings, error) {
	for _, t := range s.Tiers {
		if t.ID == id {
			return t, nil
		}
	}
	return TierSettings{}, ErrUnknownTier
}

// SetTierActive flips a tier's active flag. Activation requires usable
// stake bounds.
func (s *Settings) SetTierActive(id uint8, active bool) error {
	for i := range s.Tiers {
		if s.Tiers[i].ID != id {
			continue
		}
		if active && s.Tiers[i].MaxStake == 0 {
			return ErrInactiveTier
		}
		s.Tiers[i].Active = active
		return nil
	}
	return ErrUnknownTier
}
