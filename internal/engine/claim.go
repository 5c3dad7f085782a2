package engine

import (
	"time"

	"github.com/fystack/settlement-engine/pkg/events"
	"github.com/fystack/settlement-engine/pkg/kvstore"
)

// ClaimParams is a winner's payout request: the claim slot assigned by the
// resolver, the amount it committed, and the Merkle path to the round's root.
type ClaimParams struct {
	Player string
	Epoch  uint64
	Tier   uint8
	Index  uint32
	Amount uint64
	Proof  [][32]byte
}

// Claim pays out one winning stake, exactly once. The payout is gated three
// ways: the per-index bit in the round's claim bitmap, the claimed flag on
// the prediction, and the Merkle proof binding (index, player, amount, and
// the player's selection mask) to the committed root.
func (e *Engine) Claim(p ClaimParams) (uint64, error) {
	var paid uint64

	err := e.store.Update(func(tx *kvstore.Txn) error {
		settings, err := getSettings(tx)
		if err != nil {
			return err
		}
		if settings.PauseClaims {
			return ErrClaimsPaused
		}
		if len(p.Proof) > MaxProofLen {
			return ErrProofTooLong
		}

		var round Round
		found, err := tx.Get(roundKey(p.Epoch, p.Tier), &round)
		if err != nil {
			return err
		}
		if !found {
			return ErrRoundNotFound
		}

		var pred Prediction
		found, err = tx.Get(predictionKey(p.Player, round.FirstEpochInChain, p.Tier), &pred)
		if err != nil {
			return err
		}
		if !found {
			return ErrStakeNotFound
		}
		if pred.Player != p.Player {
			return ErrUnauthorized
		}
		if pred.Tier != p.Tier {
			return ErrTierMismatch
		}
		if pred.ChainEpoch != round.FirstEpochInChain {
			return ErrEpochMismatch
		}
		if err := pred.checkInvariant(); err != nil {
			return err
		}

		if isClaimed(round.ClaimedBitmap, p.Index) {
			return ErrAlreadyClaimed
		}
		if pred.Claimed {
			return ErrAlreadyClaimed
		}
		if round.ClaimedWinners >= round.TotalWinners {
			return ErrTooManyClaims
		}
		if round.Status != RoundResolved {
			return ErrRoundNotSettled
		}
		if round.Epoch != p.Epoch {
			return ErrEpochMismatch
		}
		if round.Tier != p.Tier {
			return ErrTierMismatch
		}
		if p.Amount == 0 {
			return ErrInvalidClaimAmount
		}
		if round.TotalWinners == 0 {
			return ErrNoWinners
		}

		// Index bounds and bitmap integrity.
		if p.Index >= round.TotalWinners {
			return ErrInvalidClaimIndex
		}
		if int(p.Index/8) >= len(round.ClaimedBitmap) {
			return ErrInvalidClaimIndex
		}
		if len(round.ClaimedBitmap) != bitmapLen(round.TotalWinners) {
			return ErrBitmapLength
		}

		// Corruption guard: the stored mask must match the stored selections
		// before the proof is allowed to bind to it.
		recomputed, err := pred.recomputeMask()
		if err != nil {
			return err
		}
		if recomputed != pred.SelectionsMask {
			return ErrInvalidSelection
		}

		leaf := ClaimLeafHash(p.Epoch, p.Tier, p.Index, p.Player, p.Amount, pred.SelectionsMask)
		if round.MerkleRoot == [32]byte{} {
			return ErrEmptyMerkleRoot
		}
		if !VerifyMerkleProof(leaf, p.Proof, round.MerkleRoot, p.Index) {
			return ErrInvalidProof
		}

		// Solvency: the round's prize pool first, then the custody balance.
		remaining, err := subU64(round.NetPrizePool, round.ClaimedValue)
		if err != nil {
			return err
		}
		if p.Amount > remaining {
			return ErrInsufficientPrizePool
		}
		treasury, err := getTreasury(tx)
		if err != nil {
			return err
		}
		if err := treasury.payOut(p.Amount); err != nil {
			return err
		}

		setClaimed(round.ClaimedBitmap, p.Index)
		if round.ClaimedValue, err = addU64(round.ClaimedValue, p.Amount); err != nil {
			return err
		}
		if round.ClaimedWinners, err = addU32(round.ClaimedWinners, 1); err != nil {
			return err
		}
		pred.Claimed = true
		pred.ClaimedAt = time.Now().UTC().Unix()
		paid = p.Amount

		if err := tx.Set(roundKey(p.Epoch, p.Tier), &round); err != nil {
			return err
		}
		if err := tx.Set(predictionKey(p.Player, round.FirstEpochInChain, p.Tier), &pred); err != nil {
			return err
		}
		return tx.Set(treasuryKey, treasury)
	})
	if err != nil {
		return 0, err
	}

	e.emitter.Emit(events.SettlementEvent{
		Type:  events.TypeClaimPaid,
		Epoch: p.Epoch,
		Tier:  p.Tier,
		Data: events.ClaimData{
			Player: p.Player,
			Index:  p.Index,
			Amount: events.DisplayAmount(paid),
		},
	})
	return paid, nil
}
