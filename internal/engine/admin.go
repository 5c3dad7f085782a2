package engine

import (
	"github.com/fystack/settlement-engine/pkg/kvstore"
)

// ActivateTier flips the tier active and opens its pool at the current
// epoch. The pool starts with no blocked number: staking stays disabled
// until ResetTier assigns one.
func (e *Engine) ActivateTier(authority string, tier uint8) error {
	et := e.clock.Now()
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}
		if err := settings.SetTierActive(tier, true); err != nil {
			return err
		}

		pool := NewPool(et.Epoch, settings.StakeCutoffTicks, tier, settings.BaseFeeBps)
		if err := tx.Insert(poolKey(tier), pool); err != nil {
			return insertErr(err, ErrPoolExists)
		}
		return tx.Set(settingsKey, settings)
	})
}

// SetTierActive updates only the active flag, leaving the pool in place.
func (e *Engine) SetTierActive(authority string, tier uint8, active bool) error {
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}
		if err := settings.SetTierActive(tier, active); err != nil {
			return err
		}
		return tx.Set(settingsKey, settings)
	})
}

// ResetTier re-seeds an empty pool at the current epoch with a fresh blocked
// number and the base fee. Refuses to wipe a pool holding any value or
// stakes, and never moves a pool backwards in time.
func (e *Engine) ResetTier(authority string, tier uint8, blocked uint8) error {
	et := e.clock.Now()
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}

		pool, err := getPool(tx, tier)
		if err != nil {
			return err
		}
		if pool.Tier != tier {
			return ErrTierMismatch
		}
		if et.Epoch < pool.Epoch {
			return ErrEpochNotAdvanced
		}
		if blocked < 1 || blocked > 9 {
			return ErrInvalidBlocked
		}
		if !pool.IsEmpty() {
			return ErrPoolNotEmpty
		}

		pool.ResetForNewEpoch(
			et.Epoch,
			settings.StakeCutoffTicks,
			0, 0,
			[10]uint64{}, [10]uint32{},
			blocked,
			settings.BaseFeeBps,
		)
		return tx.Set(poolKey(tier), pool)
	})
}

// CloseTier deactivates a tier and deletes its pool. Refused while any
// stakes are outstanding.
func (e *Engine) CloseTier(authority string, tier uint8) error {
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}

		pool, err := getPool(tx, tier)
		if err != nil {
			return err
		}
		if pool.Tier != tier {
			return ErrTierMismatch
		}
		if pool.TotalStakes != 0 {
			return ErrPoolNotEmpty
		}
		if err := settings.SetTierActive(tier, false); err != nil {
			return err
		}
		if err := tx.Delete(poolKey(tier)); err != nil {
			return err
		}
		return tx.Set(settingsKey, settings)
	})
}

// TierUpdate patches one tier's settings; nil fields are left unchanged.
type TierUpdate struct {
	ID                  uint8
	Active              *bool
	MinStake            *uint64
	MaxStake            *uint64
	TicketRewardBps     *uint16
	TicketRewardMax     *uint16
	TicketsPerRecipient *uint8
}

// UpdateConfigParams patches the persisted settings; nil fields are left
// unchanged. Fee changes apply to pools on their next reset, not mid-epoch.
type UpdateConfigParams struct {
	Authority string

	PauseStaking *bool
	PauseClaims  *bool
	NewAuthority *string

	BaseFeeBps         *uint16
	MinFeeBps          *uint16
	RolloverFeeStepBps *uint16
	StakeCutoffTicks   *uint64

	Tiers []TierUpdate
}

// UpdateConfig applies an admin settings patch. The effective fee triple is
// validated as a whole before anything is written: min <= base, step <= base,
// everything within the bps denominator.
func (e *Engine) UpdateConfig(p UpdateConfigParams) error {
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(p.Authority); err != nil {
			return err
		}

		if p.PauseStaking != nil {
			settings.PauseStaking = *p.PauseStaking
		}
		if p.PauseClaims != nil {
			settings.PauseClaims = *p.PauseClaims
		}
		if p.NewAuthority != nil {
			if *p.NewAuthority == "" {
				return ErrUnauthorized
			}
			settings.Authority = *p.NewAuthority
		}

		if p.StakeCutoffTicks != nil {
			// Anything shorter gives the resolver no safety margin at the
			// epoch boundary.
			if *p.StakeCutoffTicks <= 20 {
				return ErrInvalidCutoff
			}
			settings.StakeCutoffTicks = *p.StakeCutoffTicks
		}

		for _, u := range p.Tiers {
			if err := settings.applyTierUpdate(u); err != nil {
				return err
			}
		}

		// Validate the effective fee triple, then apply.
		base := settings.BaseFeeBps
		if p.BaseFeeBps != nil {
			base = *p.BaseFeeBps
		}
		minFee := settings.MinFeeBps
		if p.MinFeeBps != nil {
			minFee = *p.MinFeeBps
		}
		step := settings.RolloverFeeStepBps
		if p.RolloverFeeStepBps != nil {
			step = *p.RolloverFeeStepBps
		}
		if base > FeeBpsDenom || minFee > FeeBpsDenom || step > FeeBpsDenom {
			return ErrInvalidFeeConfig
		}
		if minFee > base {
			return ErrInvalidFeeConfig
		}
		// A step above the base fee would drop straight to the floor on the
		// first rollover.
		if step > base {
			return ErrInvalidFeeConfig
		}
		settings.BaseFeeBps = base
		settings.MinFeeBps = minFee
		settings.RolloverFeeStepBps = step

		return tx.Set(settingsKey, settings)
	})
}

func (s *Settings) applyTierUpdate(u TierUpdate) error {
	for i := range s.Tiers {
		t := &s.Tiers[i]
		if t.ID != u.ID {
			continue
		}
		if u.Active != nil {
			t.Active = *u.Active
		}
		changedBounds := false
		if u.MinStake != nil {
			t.MinStake = *u.MinStake
			changedBounds = true
		}
		if u.MaxStake != nil {
			t.MaxStake = *u.MaxStake
			changedBounds = true
		}
		if t.Active || changedBounds {
			if t.MinStake >= t.MaxStake {
				return ErrStakeOutOfTierRange
			}
		}
		if u.TicketRewardBps != nil {
			if *u.TicketRewardBps > FeeBpsDenom {
				return ErrInvalidTicketGrant
			}
			t.TicketRewardBps = *u.TicketRewardBps
		}
		if u.TicketRewardMax != nil {
			if t.TicketRewardBps > 0 && *u.TicketRewardMax == 0 {
				return ErrInvalidTicketGrant
			}
			t.TicketRewardMax = *u.TicketRewardMax
		}
		if u.TicketsPerRecipient != nil {
			if uint32(*u.TicketsPerRecipient) > MaxTicketsPerPlayer {
				return ErrInvalidTicketGrant
			}
			t.TicketsPerRecipient = *u.TicketsPerRecipient
		}
		return nil
	}
	return ErrUnknownTier
}

// GrantTickets awards change tickets to a player by hand, capped per grant
// and clamped at the per-player maximum.
func (e *Engine) GrantTickets(authority string, player string, tickets uint32) error {
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}
		if tickets == 0 || tickets > MaxTicketsPerGrant {
			return ErrInvalidTicketGrant
		}

		var profile Profile
		found, err := tx.Get(profileKey(player), &profile)
		if err != nil {
			return err
		}
		if !found {
			return ErrInvalidTicketGrant
		}
		profile.awardTickets(tickets)
		return tx.Set(profileKey(player), &profile)
	})
}

// AwardTierTickets grants the tier-configured consolation tickets to one
// player, typically a loser picked by the off-core resolver. A tier
// configured with zero tickets makes this a no-op.
func (e *Engine) AwardTierTickets(authority string, player string, tier uint8) error {
	return e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}
		tierCfg, err := settings.Tier(tier)
		if err != nil {
			return err
		}
		if tierCfg.TicketsPerRecipient == 0 {
			return nil
		}

		var profile Profile
		found, err := tx.Get(profileKey(player), &profile)
		if err != nil {
			return err
		}
		if !found {
			return ErrInvalidTicketGrant
		}
		profile.awardTickets(uint32(tierCfg.TicketsPerRecipient))
		return tx.Set(profileKey(player), &profile)
	})
}

// CloseProfile deletes a player's profile. Blocked while the profile lock
// is still ahead of the current epoch, i.e. while a recently staked game
// could still pay out.
func (e *Engine) CloseProfile(player string) error {
	et := e.clock.Now()
	return e.store.Update(func(tx *kvstore.Txn) error {
		var profile Profile
		found, err := tx.Get(profileKey(player), &profile)
		if err != nil {
			return err
		}
		if !found {
			return ErrProfileNotFound
		}
		if et.Epoch < profile.LockedUntilEpoch {
			return ErrProfileLocked
		}
		return tx.Delete(profileKey(player))
	})
}
