package engine

import (
	"time"

	"github.com/fystack/settlement-engine/pkg/events"
	"github.com/fystack/settlement-engine/pkg/kvstore"
)

// PlaceStakeParams places a new stake. ValuePerNumber is the per-number
// amount; total exposure is ValuePerNumber times the derived selection count.
type PlaceStakeParams struct {
	Player         string
	Tier           uint8
	PredictionType uint8
	Choice         uint32
	ValuePerNumber uint64
}

// PlaceStake records a player's one stake for the tier's current game chain.
func (e *Engine) PlaceStake(p PlaceStakeParams) (*Prediction, error) {
	et := e.clock.Now()
	var pred *Prediction

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if settings.PauseStaking {
			return ErrStakingPaused
		}
		if p.ValuePerNumber == 0 {
			return ErrInvalidAmount
		}

		pool, err := getPool(tx, p.Tier)
		if err != nil {
			return err
		}
		if et.Epoch != pool.Epoch {
			return ErrEpochMismatch
		}
		if pool.Tier != p.Tier {
			return ErrTierMismatch
		}
		if !stakeWindowOpen(et, pool.CutoffTicks) {
			return ErrStakingClosed
		}

		count, selections, mask, err := DeriveSelections(p.PredictionType, p.Choice, pool.BlockedNumber)
		if err != nil {
			return err
		}

		tierCfg, err := settings.Tier(p.Tier)
		if err != nil {
			return err
		}
		if !tierCfg.Active {
			return ErrInactiveTier
		}
		if !tierCfg.InRange(p.ValuePerNumber) {
			return ErrStakeOutOfTierRange
		}

		total, err := mulU64(p.ValuePerNumber, uint64(count))
		if err != nil {
			return err
		}

		// One prediction per (player, chain, tier).
		now := time.Now().UTC().Unix()
		pred = &Prediction{
			ChainEpoch:     pool.FirstEpochInChain,
			Epoch:          et.Epoch,
			Player:         p.Player,
			Tier:           p.Tier,
			Type:           p.PredictionType,
			SelectionCount: count,
			SelectionsMask: mask,
			Selections:     selections,
			TotalValue:     total,
			ValuePerNumber: p.ValuePerNumber,
			PlacedTick:     et.Tick,
			PlacedAt:       now,
			UpdatedAt:      now,
		}
		if err := pred.checkInvariant(); err != nil {
			return err
		}
		key := predictionKey(p.Player, pool.FirstEpochInChain, p.Tier)
		if err := tx.Insert(key, pred); err != nil {
			return insertErr(err, ErrDuplicateStake)
		}

		// Pool totals.
		if pool.TotalStakes, err = addU32(pool.TotalStakes, 1); err != nil {
			return err
		}
		if pool.TotalValue, err = addU64(pool.TotalValue, total); err != nil {
			return err
		}
		for i := 0; i < int(count); i++ {
			n := selections[i]
			if pool.StakesPerNumber[n], err = addU32(pool.StakesPerNumber[n], 1); err != nil {
				return err
			}
		}
		if err := pool.applySelections(p.ValuePerNumber, selections, count); err != nil {
			return err
		}

		// Custody: the full exposure moves into the treasury.
		treasury, err := getTreasury(tx)
		if err != nil {
			return err
		}
		if err := treasury.deposit(total); err != nil {
			return err
		}

		// Profile: hydrate on first stake, then stats. Counters saturate
		// rather than abort - stats never block a valid stake.
		var profile Profile
		found, err := tx.Get(profileKey(p.Player), &profile)
		if err != nil {
			return err
		}
		if !found {
			profile = *newProfile(p.Player)
		}
		if lock := et.Epoch + 2; lock > profile.LockedUntilEpoch {
			profile.LockedUntilEpoch = lock
		}
		profile.pushRecentStake(key)
		if profile.TotalStakes+1 > profile.TotalStakes {
			profile.TotalStakes++
		}
		if profile.TotalWagered+total >= profile.TotalWagered {
			profile.TotalWagered += total
		}
		profile.LastPlayedEpoch = et.Epoch
		profile.LastPlayedTier = p.Tier
		profile.LastPlayedAt = now
		if profile.XPPoints+1 > profile.XPPoints {
			profile.XPPoints++
		}
		if profile.FirstPlayedEpoch == 0 {
			profile.FirstPlayedEpoch = pool.FirstEpochInChain
		}

		if err := tx.Set(profileKey(p.Player), &profile); err != nil {
			return err
		}
		if err := tx.Set(poolKey(p.Tier), pool); err != nil {
			return err
		}
		return tx.Set(treasuryKey, treasury)
	})
	if err != nil {
		return nil, err
	}

	e.emitter.Emit(events.SettlementEvent{
		Type:  events.TypeStakePlaced,
		Epoch: pred.Epoch,
		Tier:  p.Tier,
		Data: events.StakeData{
			Player:         p.Player,
			PredictionType: p.PredictionType,
			Selections:     pred.Selections[:pred.SelectionCount],
			ValuePerNumber: events.DisplayAmount(pred.ValuePerNumber),
			TotalValue:     events.DisplayAmount(pred.TotalValue),
		},
	})
	return pred, nil
}

// IncreaseStakeParams raises the per-number amount of an existing stake.
// Choice must repeat a positive value as a liveness check on the caller's
// intent; the stored selection set is authoritative.
type IncreaseStakeParams struct {
	Player             string
	Tier               uint8
	AdditionalPerValue uint64
	Choice             uint32
}

// IncreaseStake adds to the per-number amount of an unclaimed stake while
// the current epoch's window is still open.
func (e *Engine) IncreaseStake(p IncreaseStakeParams) (*Prediction, error) {
	et := e.clock.Now()
	var pred Prediction

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if settings.PauseStaking {
			return ErrStakingPaused
		}
		if p.AdditionalPerValue == 0 {
			return ErrInvalidAmount
		}
		if p.Choice == 0 {
			return ErrInvalidSelection
		}

		pool, err := getPool(tx, p.Tier)
		if err != nil {
			return err
		}
		found, err := tx.Get(predictionKey(p.Player, pool.FirstEpochInChain, p.Tier), &pred)
		if err != nil {
			return err
		}
		if !found {
			return ErrStakeNotFound
		}
		if err := pred.checkInvariant(); err != nil {
			return err
		}
		if pred.Claimed {
			return ErrAlreadyClaimed
		}

		if et.Epoch != pool.Epoch {
			return ErrEpochMismatch
		}
		if pred.ChainEpoch != pool.FirstEpochInChain {
			return ErrEpochMismatch
		}
		if pred.Epoch < pool.FirstEpochInChain || pred.Epoch > pool.Epoch {
			return ErrEpochMismatch
		}
		if pred.Tier != p.Tier || pool.Tier != p.Tier {
			return ErrTierMismatch
		}
		if !stakeWindowOpen(et, pool.CutoffTicks) {
			return ErrStakingClosed
		}

		tierCfg, err := settings.Tier(p.Tier)
		if err != nil {
			return err
		}
		if !tierCfg.Active {
			return ErrInactiveTier
		}

		recomputed, err := pred.recomputeMask()
		if err != nil {
			return err
		}
		if recomputed != pred.SelectionsMask {
			return ErrInvalidSelection
		}

		newPerNumber, err := addU64(pred.ValuePerNumber, p.AdditionalPerValue)
		if err != nil {
			return err
		}
		// The tier band applies to the per-number amount.
		if !tierCfg.InRange(newPerNumber) {
			return ErrStakeOutOfTierRange
		}
		additionalTotal, err := mulU64(p.AdditionalPerValue, uint64(pred.SelectionCount))
		if err != nil {
			return err
		}
		newTotal, err := addU64(pred.TotalValue, additionalTotal)
		if err != nil {
			return err
		}

		pred.ValuePerNumber = newPerNumber
		pred.TotalValue = newTotal
		if pred.ChangedCount+1 > pred.ChangedCount {
			pred.ChangedCount++
		}
		pred.UpdatedAt = time.Now().UTC().Unix()
		if err := pred.checkInvariant(); err != nil {
			return err
		}

		// Pool deltas: value buckets only; stake counts are unchanged.
		if err := pool.applySelections(p.AdditionalPerValue, pred.Selections, pred.SelectionCount); err != nil {
			return err
		}
		if pool.TotalValue, err = addU64(pool.TotalValue, additionalTotal); err != nil {
			return err
		}

		treasury, err := getTreasury(tx)
		if err != nil {
			return err
		}
		if err := treasury.deposit(additionalTotal); err != nil {
			return err
		}

		var profile Profile
		if found, err := tx.Get(profileKey(p.Player), &profile); err != nil {
			return err
		} else if found {
			if profile.TotalWagered+additionalTotal >= profile.TotalWagered {
				profile.TotalWagered += additionalTotal
			}
			if err := tx.Set(profileKey(p.Player), &profile); err != nil {
				return err
			}
		}

		if err := tx.Set(predictionKey(p.Player, pool.FirstEpochInChain, p.Tier), &pred); err != nil {
			return err
		}
		if err := tx.Set(poolKey(p.Tier), pool); err != nil {
			return err
		}
		return tx.Set(treasuryKey, treasury)
	})
	if err != nil {
		return nil, err
	}

	e.emitter.Emit(events.SettlementEvent{
		Type:  events.TypeStakeIncreased,
		Epoch: et.Epoch,
		Tier:  p.Tier,
		Data: events.StakeData{
			Player:         p.Player,
			PredictionType: pred.Type,
			Selections:     pred.Selections[:pred.SelectionCount],
			ValuePerNumber: events.DisplayAmount(pred.ValuePerNumber),
			TotalValue:     events.DisplayAmount(pred.TotalValue),
		},
	})
	return &pred, nil
}

// ChangeSelectionParams swaps the numbers an unclaimed stake covers.
type ChangeSelectionParams struct {
	Player            string
	Tier              uint8
	NewPredictionType uint8
	NewChoice         uint32
}

// ChangeSelection re-points an unclaimed stake at a new selection set of the
// same size, consuming one change ticket. Value does not move: the per-number
// buckets are retracted from the old numbers and applied to the new ones.
func (e *Engine) ChangeSelection(p ChangeSelectionParams) (*Prediction, error) {
	et := e.clock.Now()
	var pred Prediction

	err := e.store.Update(func(tx *kvstore.Txn) error {
		pool, err := getPool(tx, p.Tier)
		if err != nil {
			return err
		}
		found, err := tx.Get(predictionKey(p.Player, pool.FirstEpochInChain, p.Tier), &pred)
		if err != nil {
			return err
		}
		if !found {
			return ErrStakeNotFound
		}
		if err := pred.checkInvariant(); err != nil {
			return err
		}

		if et.Epoch != pool.Epoch {
			return ErrEpochMismatch
		}
		if pred.Claimed {
			return ErrAlreadyClaimed
		}
		if pred.ChainEpoch != pool.FirstEpochInChain {
			return ErrEpochMismatch
		}
		if pred.Epoch < pool.FirstEpochInChain || pred.Epoch > pool.Epoch {
			return ErrEpochMismatch
		}
		if pred.Tier != p.Tier || pool.Tier != p.Tier {
			return ErrTierMismatch
		}
		if !stakeWindowOpen(et, pool.CutoffTicks) {
			return ErrStakingClosed
		}

		var profile Profile
		found, err = tx.Get(profileKey(p.Player), &profile)
		if err != nil {
			return err
		}
		if !found || profile.TicketsAvailable == 0 {
			return ErrNoChangeTickets
		}

		newCount, newSelections, newMask, err := DeriveSelections(p.NewPredictionType, p.NewChoice, pool.BlockedNumber)
		if err != nil {
			return err
		}
		if newMask == pred.SelectionsMask {
			return ErrNoOpChange
		}
		// Count changes would move value in or out; not allowed here.
		if newCount != pred.SelectionCount {
			return ErrSelectionCountChanged
		}

		if err := pool.retractSelections(pred.ValuePerNumber, pred.Selections, pred.SelectionCount); err != nil {
			return err
		}

		// Stake counts move per the mask diff.
		oldMask := pred.SelectionsMask
		removed := oldMask &^ newMask
		added := newMask &^ oldMask
		for n := uint8(1); n <= 9; n++ {
			bit := uint16(1) << n
			if removed&bit != 0 {
				if pool.StakesPerNumber[n] < 1 {
					return ErrPoolCorrupted
				}
				if pool.StakesPerNumber[n], err = subU32(pool.StakesPerNumber[n], 1); err != nil {
					return err
				}
			}
			if added&bit != 0 {
				if pool.StakesPerNumber[n], err = addU32(pool.StakesPerNumber[n], 1); err != nil {
					return err
				}
			}
		}

		pred.Type = p.NewPredictionType
		pred.SelectionCount = newCount
		pred.Selections = newSelections
		pred.SelectionsMask = newMask
		if pred.ChangedCount+1 > pred.ChangedCount {
			pred.ChangedCount++
		}
		pred.UpdatedAt = time.Now().UTC().Unix()

		profile.TicketsAvailable--

		if err := pool.applySelections(pred.ValuePerNumber, pred.Selections, pred.SelectionCount); err != nil {
			return err
		}
		// Total pot is untouched by a pure selection change.

		if err := tx.Set(predictionKey(p.Player, pool.FirstEpochInChain, p.Tier), &pred); err != nil {
			return err
		}
		if err := tx.Set(profileKey(p.Player), &profile); err != nil {
			return err
		}
		return tx.Set(poolKey(p.Tier), pool)
	})
	if err != nil {
		return nil, err
	}

	e.emitter.Emit(events.SettlementEvent{
		Type:  events.TypeSelectionChanged,
		Epoch: et.Epoch,
		Tier:  p.Tier,
		Data: events.StakeData{
			Player:         p.Player,
			PredictionType: pred.Type,
			Selections:     pred.Selections[:pred.SelectionCount],
			ValuePerNumber: events.DisplayAmount(pred.ValuePerNumber),
			TotalValue:     events.DisplayAmount(pred.TotalValue),
		},
	})
	return &pred, nil
}
