package engine

import (
	"time"

	"github.com/fystack/settlement-engine/pkg/events"
	"github.com/fystack/settlement-engine/pkg/kvstore"
)

// InitRoundParams opens settlement for one concluded (epoch, tier). The
// winning number and randomness provenance come from the off-core resolver.
type InitRoundParams struct {
	Authority     string
	Epoch         uint64
	Tier          uint8
	WinningNumber uint8
	RngTick       uint64
	RngSeed       [32]byte
}

// InitRound creates the round record in Processing state. It is the
// single-writer lock for the rest of the settlement pipeline: the record is
// created exactly once per (epoch, tier).
func (e *Engine) InitRound(p InitRoundParams) (*Round, error) {
	et := e.clock.Now()
	var round *Round

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(p.Authority); err != nil {
			return err
		}

		pool, err := getPool(tx, p.Tier)
		if err != nil {
			return err
		}
		if pool.Epoch != p.Epoch {
			return ErrEpochMismatch
		}
		if pool.Epoch >= et.Epoch {
			return ErrEpochNotComplete
		}
		if pool.Tier != p.Tier {
			return ErrTierMismatch
		}
		tierCfg, err := settings.Tier(p.Tier)
		if err != nil {
			return err
		}
		if !tierCfg.Active {
			return ErrInactiveTier
		}
		if p.WinningNumber > 9 {
			return ErrInvalidWinningNumber
		}
		if pool.TotalStakes == 0 || pool.TotalValue == 0 {
			return ErrNoStakesToSettle
		}

		round = &Round{
			Epoch:             p.Epoch,
			Tier:              p.Tier,
			Status:            RoundProcessing,
			WinningNumber:     p.WinningNumber,
			RngTick:           p.RngTick,
			RngSeed:           p.RngSeed,
			AttemptCount:      1,
			LastUpdatedTick:   et.Tick,
			LastUpdatedAt:     time.Now().UTC().Unix(),
			CarryInValue:      pool.CarriedValue,
			FirstEpochInChain: pool.FirstEpochInChain,
			RolloverReason:    RolloverNone,
			BlockedNumber:     pool.BlockedNumber,
		}
		if err := tx.Insert(roundKey(p.Epoch, p.Tier), round); err != nil {
			return insertErr(err, ErrRoundExists)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.emitter.Emit(events.SettlementEvent{
		Type:  events.TypeRoundInitialized,
		Epoch: p.Epoch,
		Tier:  p.Tier,
		Data: events.RoundData{
			Status:        "processing",
			WinningNumber: p.WinningNumber,
		},
	})
	return round, nil
}

// ReprocessRound re-arms a stuck or failed round for another settlement
// attempt. Resolved rounds are immutable.
func (e *Engine) ReprocessRound(authority string, epoch uint64, tier uint8) (*Round, error) {
	et := e.clock.Now()
	var round Round

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(authority); err != nil {
			return err
		}

		found, err := tx.Get(roundKey(epoch, tier), &round)
		if err != nil {
			return err
		}
		if !found {
			return ErrRoundNotFound
		}
		if round.Status == RoundResolved {
			return ErrRoundSettled
		}
		if round.Epoch != epoch {
			return ErrEpochMismatch
		}
		if round.Tier != tier {
			return ErrTierMismatch
		}
		tierCfg, err := settings.Tier(tier)
		if err != nil {
			return err
		}
		if !tierCfg.Active {
			return ErrInactiveTier
		}

		if round.AttemptCount+1 > round.AttemptCount {
			round.AttemptCount++
		}
		round.Status = RoundProcessing
		round.LastUpdatedTick = et.Tick
		round.LastUpdatedAt = time.Now().UTC().Unix()
		return tx.Set(roundKey(epoch, tier), &round)
	})
	if err != nil {
		return nil, err
	}
	return &round, nil
}

// FinalizeRoundParams carries the resolver's proposed pot breakdown and
// winner commitment. The fee and net pool are recomputed here and must match
// the proposal exactly; the resolver is not trusted with arithmetic.
type FinalizeRoundParams struct {
	Authority      string
	Epoch          uint64
	Tier           uint8
	ProtocolFee    uint64
	NetPrizePool   uint64
	TotalWinners   uint32
	MerkleRoot     [32]byte
	ResultsPointer [ResultsPointerLen]byte
}

// FinalizeRound settles a Processing round: verifies the pot breakdown,
// withdraws the protocol fee, commits the winner set, and resets the pool
// for the next epoch. A finalization with zero winners keeps the whole pot
// as carry-over (no fee is taken on value nobody won).
func (e *Engine) FinalizeRound(p FinalizeRoundParams) (*Round, error) {
	et := e.clock.Now()
	var round Round

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(p.Authority); err != nil {
			return err
		}

		pool, err := getPool(tx, p.Tier)
		if err != nil {
			return err
		}
		if pool.TotalStakes == 0 || pool.TotalValue == 0 {
			return ErrNoStakesToSettle
		}
		if pool.Epoch != p.Epoch {
			return ErrEpochMismatch
		}
		if pool.Epoch >= et.Epoch {
			return ErrEpochNotComplete
		}
		if pool.Tier != p.Tier {
			return ErrTierMismatch
		}
		tierCfg, err := settings.Tier(p.Tier)
		if err != nil {
			return err
		}
		if !tierCfg.Active {
			return ErrInactiveTier
		}

		found, err := tx.Get(roundKey(p.Epoch, p.Tier), &round)
		if err != nil {
			return err
		}
		if !found {
			return ErrRoundNotFound
		}
		if round.Epoch != p.Epoch {
			return ErrEpochMismatch
		}
		if round.Tier != p.Tier {
			return ErrTierMismatch
		}
		round.ResultsPointer = p.ResultsPointer
		if !round.hasResultsPointer() {
			return ErrEmptyResultsPointer
		}
		if round.Status != RoundProcessing {
			return ErrRoundNotSettling
		}

		// Recompute the pot breakdown; the proposal must match bit for bit.
		gross := pool.TotalValue
		var expectedFee, expectedNet uint64
		if p.TotalWinners == 0 {
			expectedFee, expectedNet = 0, gross
		} else {
			expectedFee, expectedNet, err = SplitFee(gross, pool.FeeBps)
			if err != nil {
				return err
			}
		}
		if expectedFee != p.ProtocolFee {
			return ErrFeeMismatch
		}
		if expectedNet != p.NetPrizePool {
			return ErrPotMismatch
		}
		combined, err := addU64(expectedFee, expectedNet)
		if err != nil {
			return err
		}
		if combined > gross {
			return ErrPotMismatch
		}

		// Carry-over: everything on no winners, nothing otherwise.
		var carryValue uint64
		var carryStakes uint32
		var carryValues [10]uint64
		var carryCounts [10]uint32
		if p.TotalWinners == 0 {
			carryValue = expectedNet
			carryStakes = pool.TotalStakes
			carryValues = pool.ValuePerNumber
			carryCounts = pool.StakesPerNumber
		}
		if carryValue > expectedNet {
			return ErrInvalidCarryOver
		}

		treasury, err := getTreasury(tx)
		if err != nil {
			return err
		}
		if treasury.Balance < expectedFee {
			return ErrInsufficientCustody
		}
		if treasury.Balance-expectedFee < expectedNet {
			return ErrInsufficientCustody
		}
		if expectedFee > 0 {
			if err := treasury.withdrawFee(expectedFee); err != nil {
				return err
			}
		}

		bitmapBytes := bitmapLen(p.TotalWinners)
		if bitmapBytes > MaxBitmapLen {
			return ErrTooManyWinners
		}

		now := time.Now().UTC().Unix()
		round.TotalStakes = pool.TotalStakes
		round.CarriedStakes = carryStakes
		round.ProtocolFee = expectedFee
		round.FeeBps = pool.FeeBps
		round.NetPrizePool = expectedNet
		round.CarryInValue = pool.CarriedValue
		round.CarryOutValue = carryValue
		round.TotalWinners = p.TotalWinners
		round.ClaimedWinners = 0
		round.ClaimedBitmap = make([]byte, bitmapBytes)
		round.MerkleRoot = p.MerkleRoot
		round.ResolvedAt = now
		round.Status = RoundResolved
		round.LastUpdatedTick = et.Tick
		round.LastUpdatedAt = now

		pool.ResetForNewEpoch(
			pool.Epoch+1,
			settings.StakeCutoffTicks,
			carryValue,
			carryStakes,
			carryValues,
			carryCounts,
			nextBlockedNumber(round.WinningNumber, pool.BlockedNumber),
			settings.BaseFeeBps,
		)

		if err := tx.Set(roundKey(p.Epoch, p.Tier), &round); err != nil {
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
		Type:  events.TypeRoundFinalized,
		Epoch: p.Epoch,
		Tier:  p.Tier,
		Data: events.RoundData{
			Status:        "resolved",
			WinningNumber: round.WinningNumber,
			TotalWinners:  round.TotalWinners,
			ProtocolFee:   events.DisplayAmount(round.ProtocolFee),
			NetPrizePool:  events.DisplayAmount(round.NetPrizePool),
			CarryOutValue: events.DisplayAmount(round.CarryOutValue),
		},
	})
	return &round, nil
}

// RolloverRoundParams settles a round whose pot carries forward without a
// winner list: the winning number hit the blocked number (or 0), or nobody
// staked on it.
type RolloverRoundParams struct {
	Authority     string
	Epoch         uint64
	Tier          uint8
	WinningNumber uint8
	RngTick       uint64
	RngSeed       [32]byte
}

// RolloverRound records a carried epoch in one step - the round is created
// already Resolved with zero winners - and moves the full gross pot into the
// next epoch of the chain. No fee is taken on a carried pot. A blocked-number
// hit also decays the fee for the continued chain; a no-winners carry keeps
// it (both clamped to the configured floor).
func (e *Engine) RolloverRound(p RolloverRoundParams) (*Round, error) {
	et := e.clock.Now()
	var round *Round

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if err := settings.requireAuthority(p.Authority); err != nil {
			return err
		}

		pool, err := getPool(tx, p.Tier)
		if err != nil {
			return err
		}
		if p.WinningNumber > 9 {
			return ErrInvalidWinningNumber
		}

		isRolloverNumber := p.WinningNumber == 0 || p.WinningNumber == pool.BlockedNumber
		hasWinners := pool.StakesPerNumber[p.WinningNumber] > 0
		if !isRolloverNumber && hasWinners {
			return ErrCarryNotAllowed
		}
		reason := RolloverNoWinners
		if isRolloverNumber {
			reason = RolloverBlockedNumber
		}

		if pool.TotalStakes == 0 || pool.TotalValue == 0 {
			return ErrNoStakesToSettle
		}
		if pool.Epoch != p.Epoch {
			return ErrEpochMismatch
		}
		if pool.Epoch >= et.Epoch {
			return ErrEpochNotComplete
		}
		if pool.Tier != p.Tier {
			return ErrTierMismatch
		}
		tierCfg, err := settings.Tier(p.Tier)
		if err != nil {
			return err
		}
		if !tierCfg.Active {
			return ErrInactiveTier
		}

		// The whole gross pot carries; no fee is taken on a rollover.
		gross := pool.TotalValue

		treasury, err := getTreasury(tx)
		if err != nil {
			return err
		}
		if treasury.Balance < gross {
			return ErrInsufficientCustody
		}

		now := time.Now().UTC().Unix()
		round = &Round{
			Epoch:             p.Epoch,
			Tier:              p.Tier,
			Status:            RoundResolved,
			WinningNumber:     p.WinningNumber,
			RngTick:           p.RngTick,
			RngSeed:           p.RngSeed,
			AttemptCount:      1,
			LastUpdatedTick:   et.Tick,
			LastUpdatedAt:     now,
			CarriedStakes:     pool.TotalStakes,
			TotalStakes:       pool.TotalStakes,
			CarryInValue:      pool.CarriedValue,
			CarryOutValue:     gross,
			ProtocolFee:       0,
			FeeBps:            pool.FeeBps,
			NetPrizePool:      gross,
			ResolvedAt:        now,
			FirstEpochInChain: pool.FirstEpochInChain,
			RolloverReason:    reason,
			BlockedNumber:     pool.BlockedNumber,
		}
		if err := tx.Insert(roundKey(p.Epoch, p.Tier), round); err != nil {
			return insertErr(err, ErrRoundExists)
		}

		var nextFee uint16
		if isRolloverNumber {
			nextFee = NextFeeBpsOnRollover(pool.FeeBps, settings.RolloverFeeStepBps, settings.MinFeeBps)
		} else {
			nextFee = max(pool.FeeBps, settings.MinFeeBps)
		}

		carryValues := pool.ValuePerNumber
		carryCounts := pool.StakesPerNumber
		pool.ResetForNewEpoch(
			pool.Epoch+1,
			settings.StakeCutoffTicks,
			gross,
			round.CarriedStakes,
			carryValues,
			carryCounts,
			nextBlockedNumber(p.WinningNumber, pool.BlockedNumber),
			nextFee,
		)
		return tx.Set(poolKey(p.Tier), pool)
	})
	if err != nil {
		return nil, err
	}

	e.emitter.Emit(events.SettlementEvent{
		Type:  events.TypeRoundRolledOver,
		Epoch: p.Epoch,
		Tier:  p.Tier,
		Data: events.RoundData{
			Status:         "resolved",
			WinningNumber:  p.WinningNumber,
			CarryOutValue:  events.DisplayAmount(round.CarryOutValue),
			RolloverReason: round.RolloverReason.String(),
		},
	})
	return round, nil
}
