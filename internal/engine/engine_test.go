package engine

import (
	"testing"

	"github.com/fystack/settlement-engine/pkg/common/config"
	"github.com/fystack/settlement-engine/pkg/events"
	"github.com/fystack/settlement-engine/pkg/kvstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now EpochTime
}

func (c *fakeClock) Now() EpochTime { return c.now }

func (c *fakeClock) advanceEpoch() {
	c.now.Epoch++
	c.now.ScheduleEpoch++
	c.now.TicksRemaining = 400
}

const testAuthority = "authority"

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	store, err := kvstore.OpenInMemory("test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &fakeClock{now: EpochTime{
		Epoch:          100,
		ScheduleEpoch:  100,
		Tick:           43_200,
		TicksRemaining: 400,
	}}
	eng := New(store, clock, events.NopEmitter{})
	require.NoError(t, eng.Bootstrap(config.EngineConfig{
		Authority:          testAuthority,
		BaseFeeBps:         500,
		MinFeeBps:          300,
		RolloverFeeStepBps: 100,
		StakeCutoffTicks:   150,
		Tiers: []config.TierConfig{
			{ID: 1, MinStake: 100, MaxStake: 1_000_000, TicketsPerRecipient: 1},
		},
	}))
	require.NoError(t, eng.ActivateTier(testAuthority, 1))
	// a fresh pool has no blocked number; seed one so staking can open
	require.NoError(t, eng.ResetTier(testAuthority, 1, 5))
	return eng, clock
}

func mustPlace(t *testing.T, eng *Engine, player string, predictionType uint8, choice uint32, perNumber uint64) *Prediction {
	t.Helper()
	pred, err := eng.PlaceStake(PlaceStakeParams{
		Player:         player,
		Tier:           1,
		PredictionType: predictionType,
		Choice:         choice,
		ValuePerNumber: perNumber,
	})
	require.NoError(t, err)
	return pred
}

func TestPlaceStakeAccounting(t *testing.T) {
	eng, _ := newTestEngine(t)

	pred := mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	assert.Equal(t, uint64(100), pred.ChainEpoch)
	assert.Equal(t, uint64(1_000), pred.TotalValue)

	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), pool.TotalValue)
	assert.Equal(t, uint32(1), pool.TotalStakes)
	assert.Equal(t, uint64(1_000), pool.ValuePerNumber[3])
	assert.Equal(t, uint32(1), pool.StakesPerNumber[3])

	treasury, err := eng.GetTreasury()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), treasury.Balance)
	assert.Equal(t, uint64(1_000), treasury.TotalIn)

	profile, err := eng.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), profile.TicketsAvailable)
	assert.Equal(t, uint64(1), profile.TotalStakes)
	assert.Equal(t, uint64(1_000), profile.TotalWagered)
	assert.Equal(t, uint64(102), profile.LockedUntilEpoch)
	assert.Equal(t, uint64(100), profile.FirstPlayedEpoch)
}

func TestPlaceStakeOncePerChain(t *testing.T) {
	eng, _ := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)

	_, err := eng.PlaceStake(PlaceStakeParams{
		Player: "alice", Tier: 1, PredictionType: TypeSingleNumber, Choice: 7, ValuePerNumber: 1_000,
	})
	assert.ErrorIs(t, err, ErrDuplicateStake)
}

func TestPlaceStakeValidation(t *testing.T) {
	eng, clock := newTestEngine(t)

	_, err := eng.PlaceStake(PlaceStakeParams{Player: "a", Tier: 1, PredictionType: TypeSingleNumber, Choice: 3})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = eng.PlaceStake(PlaceStakeParams{Player: "a", Tier: 1, PredictionType: TypeSingleNumber, Choice: 3, ValuePerNumber: 50})
	assert.ErrorIs(t, err, ErrStakeOutOfTierRange)

	_, err = eng.PlaceStake(PlaceStakeParams{Player: "a", Tier: 1, PredictionType: TypeSingleNumber, Choice: 5, ValuePerNumber: 1_000})
	assert.ErrorIs(t, err, ErrInvalidSelection, "blocked number is not selectable")

	_, err = eng.PlaceStake(PlaceStakeParams{Player: "a", Tier: 9, PredictionType: TypeSingleNumber, Choice: 3, ValuePerNumber: 1_000})
	assert.ErrorIs(t, err, ErrInactiveTier)

	clock.now.TicksRemaining = 150
	_, err = eng.PlaceStake(PlaceStakeParams{Player: "a", Tier: 1, PredictionType: TypeSingleNumber, Choice: 3, ValuePerNumber: 1_000})
	assert.ErrorIs(t, err, ErrStakingClosed)

	// schedule skew fails open
	clock.now.ScheduleEpoch = 101
	mustPlace(t, eng, "a", TypeSingleNumber, 3, 1_000)
	clock.now.ScheduleEpoch = 100
	clock.now.TicksRemaining = 400

	paused := true
	require.NoError(t, eng.UpdateConfig(UpdateConfigParams{Authority: testAuthority, PauseStaking: &paused}))
	_, err = eng.PlaceStake(PlaceStakeParams{Player: "b", Tier: 1, PredictionType: TypeSingleNumber, Choice: 3, ValuePerNumber: 1_000})
	assert.ErrorIs(t, err, ErrStakingPaused)
}

func TestIncreaseStake(t *testing.T) {
	eng, _ := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeTwoNumbers, 37, 1_000)

	pred, err := eng.IncreaseStake(IncreaseStakeParams{
		Player: "alice", Tier: 1, AdditionalPerValue: 500, Choice: 37,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), pred.ValuePerNumber)
	assert.Equal(t, uint64(3_000), pred.TotalValue)
	assert.Equal(t, uint8(1), pred.ChangedCount)

	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000), pool.TotalValue)
	assert.Equal(t, uint64(1_500), pool.ValuePerNumber[3])
	assert.Equal(t, uint64(1_500), pool.ValuePerNumber[7])
	assert.Equal(t, uint32(1), pool.StakesPerNumber[3], "stake counts do not change on increase")

	treasury, err := eng.GetTreasury()
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000), treasury.Balance)

	// the post-increase per-number amount must stay in the tier band
	_, err = eng.IncreaseStake(IncreaseStakeParams{
		Player: "alice", Tier: 1, AdditionalPerValue: 2_000_000, Choice: 37,
	})
	assert.ErrorIs(t, err, ErrStakeOutOfTierRange)

	_, err = eng.IncreaseStake(IncreaseStakeParams{
		Player: "bob", Tier: 1, AdditionalPerValue: 500, Choice: 37,
	})
	assert.ErrorIs(t, err, ErrStakeNotFound)
}

func TestChangeSelection(t *testing.T) {
	eng, _ := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)

	pred, err := eng.ChangeSelection(ChangeSelectionParams{
		Player: "alice", Tier: 1, NewPredictionType: TypeSingleNumber, NewChoice: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, uint8(7), pred.Selections[0])

	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pool.ValuePerNumber[3])
	assert.Equal(t, uint32(0), pool.StakesPerNumber[3])
	assert.Equal(t, uint64(1_000), pool.ValuePerNumber[7])
	assert.Equal(t, uint32(1), pool.StakesPerNumber[7])
	assert.Equal(t, uint64(1_000), pool.TotalValue, "total pot is untouched by a selection change")

	profile, err := eng.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), profile.TicketsAvailable)

	// out of tickets now
	_, err = eng.ChangeSelection(ChangeSelectionParams{
		Player: "alice", Tier: 1, NewPredictionType: TypeSingleNumber, NewChoice: 9,
	})
	assert.ErrorIs(t, err, ErrNoChangeTickets)

	require.NoError(t, eng.GrantTickets(testAuthority, "alice", 2))

	// same coverage set is a no-op
	_, err = eng.ChangeSelection(ChangeSelectionParams{
		Player: "alice", Tier: 1, NewPredictionType: TypeSingleNumber, NewChoice: 7,
	})
	assert.ErrorIs(t, err, ErrNoOpChange)

	// changing the selection count would move value in or out
	_, err = eng.ChangeSelection(ChangeSelectionParams{
		Player: "alice", Tier: 1, NewPredictionType: TypeTwoNumbers, NewChoice: 39,
	})
	assert.ErrorIs(t, err, ErrSelectionCountChanged)
}

func TestSettlementLifecycleWithWinners(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	mustPlace(t, eng, "bob", TypeSingleNumber, 7, 1_000)

	// epoch still open
	_, err := eng.InitRound(InitRoundParams{Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 3})
	assert.ErrorIs(t, err, ErrEpochNotComplete)

	clock.advanceEpoch()

	round, err := eng.InitRound(InitRoundParams{Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 3})
	require.NoError(t, err)
	assert.Equal(t, RoundProcessing, round.Status)
	assert.Equal(t, uint8(1), round.AttemptCount)

	_, err = eng.InitRound(InitRoundParams{Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 3})
	assert.ErrorIs(t, err, ErrRoundExists)

	round, err = eng.ReprocessRound(testAuthority, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), round.AttemptCount)

	// winner commitment: alice holds the winning claim
	aliceLeaf := ClaimLeafHash(100, 1, 0, "alice", 1_900, uint16(1)<<3)
	root, proofs := buildMerkleTree([][32]byte{aliceLeaf})

	var pointer [ResultsPointerLen]byte
	copy(pointer[:], "ar://results/100/1")

	// gross 2000 at 500 bps: fee 100, net 1900
	_, err = eng.FinalizeRound(FinalizeRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1,
		ProtocolFee: 999, NetPrizePool: 1_001, TotalWinners: 1,
		MerkleRoot: root, ResultsPointer: pointer,
	})
	assert.ErrorIs(t, err, ErrFeeMismatch)

	round, err = eng.FinalizeRound(FinalizeRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1,
		ProtocolFee: 100, NetPrizePool: 1_900, TotalWinners: 1,
		MerkleRoot: root, ResultsPointer: pointer,
	})
	require.NoError(t, err)
	assert.Equal(t, RoundResolved, round.Status)
	assert.Equal(t, uint64(100), round.ProtocolFee)
	assert.Equal(t, uint64(1_900), round.NetPrizePool)
	assert.Equal(t, uint64(0), round.CarryOutValue)
	assert.Equal(t, RolloverNone, round.RolloverReason)
	assert.Len(t, round.ClaimedBitmap, 1)

	// finalize is terminal
	_, err = eng.FinalizeRound(FinalizeRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1,
		ProtocolFee: 100, NetPrizePool: 1_900, TotalWinners: 1,
		MerkleRoot: root, ResultsPointer: pointer,
	})
	assert.ErrorIs(t, err, ErrNoStakesToSettle)

	treasury, err := eng.GetTreasury()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_900), treasury.Balance)
	assert.Equal(t, uint64(100), treasury.TotalFeesWithdrawn)

	// pool rolled forward: new chain, winning number becomes blocked
	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), pool.Epoch)
	assert.Equal(t, uint64(101), pool.FirstEpochInChain)
	assert.Equal(t, uint8(3), pool.BlockedNumber)
	assert.Equal(t, uint16(500), pool.FeeBps)
	assert.True(t, pool.IsEmpty())

	// alice claims her payout
	paid, err := eng.Claim(ClaimParams{
		Player: "alice", Epoch: 100, Tier: 1, Index: 0, Amount: 1_900, Proof: proofs[0],
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_900), paid)

	treasury, err = eng.GetTreasury()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), treasury.Balance)
	assert.Equal(t, uint64(1_900), treasury.TotalOut)

	// second claim attempts fail on both gates
	_, err = eng.Claim(ClaimParams{
		Player: "alice", Epoch: 100, Tier: 1, Index: 0, Amount: 1_900, Proof: proofs[0],
	})
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	// a loser cannot steal the winning slot: the leaf binds the claimer
	_, err = eng.Claim(ClaimParams{
		Player: "bob", Epoch: 100, Tier: 1, Index: 0, Amount: 1_900, Proof: proofs[0],
	})
	assert.ErrorIs(t, err, ErrAlreadyClaimed, "bitmap gate fires before the proof check")
}

func TestClaimValidation(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	mustPlace(t, eng, "bob", TypeSingleNumber, 7, 1_000)
	clock.advanceEpoch()

	_, err := eng.InitRound(InitRoundParams{Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 3})
	require.NoError(t, err)

	aliceLeaf := ClaimLeafHash(100, 1, 0, "alice", 950, uint16(1)<<3)
	bobLeaf := ClaimLeafHash(100, 1, 1, "bob", 950, uint16(1)<<7)
	root, proofs := buildMerkleTree([][32]byte{aliceLeaf, bobLeaf})

	var pointer [ResultsPointerLen]byte
	copy(pointer[:], "ar://results/100/1")
	_, err = eng.FinalizeRound(FinalizeRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1,
		ProtocolFee: 100, NetPrizePool: 1_900, TotalWinners: 2,
		MerkleRoot: root, ResultsPointer: pointer,
	})
	require.NoError(t, err)

	_, err = eng.Claim(ClaimParams{Player: "alice", Epoch: 100, Tier: 1, Index: 0, Amount: 0, Proof: proofs[0]})
	assert.ErrorIs(t, err, ErrInvalidClaimAmount)

	_, err = eng.Claim(ClaimParams{Player: "alice", Epoch: 100, Tier: 1, Index: 5, Amount: 950, Proof: proofs[0]})
	assert.ErrorIs(t, err, ErrInvalidClaimIndex)

	// tampered amount fails the proof
	_, err = eng.Claim(ClaimParams{Player: "alice", Epoch: 100, Tier: 1, Index: 0, Amount: 1_900, Proof: proofs[0]})
	assert.ErrorIs(t, err, ErrInvalidProof)

	paused := true
	require.NoError(t, eng.UpdateConfig(UpdateConfigParams{Authority: testAuthority, PauseClaims: &paused}))
	_, err = eng.Claim(ClaimParams{Player: "alice", Epoch: 100, Tier: 1, Index: 0, Amount: 950, Proof: proofs[0]})
	assert.ErrorIs(t, err, ErrClaimsPaused)

	paused = false
	require.NoError(t, eng.UpdateConfig(UpdateConfigParams{Authority: testAuthority, PauseClaims: &paused}))

	paid, err := eng.Claim(ClaimParams{Player: "alice", Epoch: 100, Tier: 1, Index: 0, Amount: 950, Proof: proofs[0]})
	require.NoError(t, err)
	assert.Equal(t, uint64(950), paid)

	paid, err = eng.Claim(ClaimParams{Player: "bob", Epoch: 100, Tier: 1, Index: 1, Amount: 950, Proof: proofs[1]})
	require.NoError(t, err)
	assert.Equal(t, uint64(950), paid)

	round, err := eng.GetRound(100, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), round.ClaimedWinners)
	assert.Equal(t, uint64(1_900), round.ClaimedValue)
}

func TestRolloverNoWinners(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	clock.advanceEpoch()

	// 7 has winners? no stakes on 7, and 7 is neither 0 nor blocked
	round, err := eng.RolloverRound(RolloverRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, RoundResolved, round.Status)
	assert.Equal(t, RolloverNoWinners, round.RolloverReason)
	assert.Equal(t, uint64(0), round.ProtocolFee, "no fee is taken on a carried pot")
	assert.Equal(t, uint64(1_000), round.NetPrizePool)
	assert.Equal(t, uint64(1_000), round.CarryOutValue)
	assert.Equal(t, uint32(0), round.TotalWinners)

	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), pool.Epoch)
	assert.Equal(t, uint64(100), pool.FirstEpochInChain, "the chain continues across a carry")
	assert.Equal(t, uint64(1_000), pool.CarriedValue)
	assert.Equal(t, uint64(1_000), pool.ValuePerNumber[3])
	assert.Equal(t, uint8(5), pool.BlockedNumber, "blocked number survives a carry")
	assert.Equal(t, uint16(500), pool.FeeBps, "no-winners carry keeps the fee")
	assert.Equal(t, uint8(1), pool.EpochsCarried)

	// alice already staked this chain; a newcomer can still join it
	_, err = eng.PlaceStake(PlaceStakeParams{
		Player: "alice", Tier: 1, PredictionType: TypeSingleNumber, Choice: 7, ValuePerNumber: 1_000,
	})
	assert.ErrorIs(t, err, ErrDuplicateStake)
	mustPlace(t, eng, "bob", TypeSingleNumber, 7, 1_000)

	// treasury never moved
	treasury, err := eng.GetTreasury()
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), treasury.Balance)
	assert.Equal(t, uint64(0), treasury.TotalFeesWithdrawn)
}

func TestRolloverBlockedNumberDecaysFee(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	clock.advanceEpoch()

	round, err := eng.RolloverRound(RolloverRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, RolloverBlockedNumber, round.RolloverReason)

	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(400), pool.FeeBps, "blocked-number carry decays the fee by one step")
}

func TestRolloverRejectedWhenWinnersExist(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	clock.advanceEpoch()

	_, err := eng.RolloverRound(RolloverRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 3,
	})
	assert.ErrorIs(t, err, ErrCarryNotAllowed)
}

func TestFinalizeZeroWinnersCarriesEverything(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	clock.advanceEpoch()

	_, err := eng.InitRound(InitRoundParams{Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 7})
	require.NoError(t, err)

	var pointer [ResultsPointerLen]byte
	copy(pointer[:], "ar://results/100/1")
	round, err := eng.FinalizeRound(FinalizeRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1,
		ProtocolFee: 0, NetPrizePool: 1_000, TotalWinners: 0,
		MerkleRoot: [32]byte{1}, ResultsPointer: pointer,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), round.ProtocolFee)
	assert.Equal(t, uint64(1_000), round.CarryOutValue)

	pool, err := eng.GetPool(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), pool.CarriedValue)
	assert.Equal(t, uint64(100), pool.FirstEpochInChain)
}

func TestFailedOperationLeavesNoSideEffects(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	clock.advanceEpoch()

	_, err := eng.InitRound(InitRoundParams{Authority: testAuthority, Epoch: 100, Tier: 1, WinningNumber: 3})
	require.NoError(t, err)

	poolBefore, err := eng.GetPool(1)
	require.NoError(t, err)
	treasuryBefore, err := eng.GetTreasury()
	require.NoError(t, err)

	var pointer [ResultsPointerLen]byte
	copy(pointer[:], "ar://results/100/1")
	_, err = eng.FinalizeRound(FinalizeRoundParams{
		Authority: testAuthority, Epoch: 100, Tier: 1,
		ProtocolFee: 1, NetPrizePool: 999, TotalWinners: 1,
		MerkleRoot: [32]byte{1}, ResultsPointer: pointer,
	})
	require.ErrorIs(t, err, ErrFeeMismatch)

	poolAfter, err := eng.GetPool(1)
	require.NoError(t, err)
	treasuryAfter, err := eng.GetTreasury()
	require.NoError(t, err)
	assert.Equal(t, poolBefore, poolAfter)
	assert.Equal(t, treasuryBefore, treasuryAfter)

	round, err := eng.GetRound(100, 1)
	require.NoError(t, err)
	assert.Equal(t, RoundProcessing, round.Status, "a failed finalize leaves the round settable")
}

func TestAuthorityGate(t *testing.T) {
	eng, clock := newTestEngine(t)
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	clock.advanceEpoch()

	_, err := eng.InitRound(InitRoundParams{Authority: "mallory", Epoch: 100, Tier: 1, WinningNumber: 3})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = eng.UpdateConfig(UpdateConfigParams{Authority: "mallory"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = eng.GrantTickets("mallory", "alice", 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminOperations(t *testing.T) {
	eng, clock := newTestEngine(t)

	// tier with open stakes cannot close
	mustPlace(t, eng, "alice", TypeSingleNumber, 3, 1_000)
	err := eng.CloseTier(testAuthority, 1)
	assert.ErrorIs(t, err, ErrPoolNotEmpty)

	err = eng.ResetTier(testAuthority, 1, 7)
	assert.ErrorIs(t, err, ErrPoolNotEmpty)

	// config patch validation
	badCutoff := uint64(20)
	err = eng.UpdateConfig(UpdateConfigParams{Authority: testAuthority, StakeCutoffTicks: &badCutoff})
	assert.ErrorIs(t, err, ErrInvalidCutoff)

	badMin := uint16(600)
	err = eng.UpdateConfig(UpdateConfigParams{Authority: testAuthority, MinFeeBps: &badMin})
	assert.ErrorIs(t, err, ErrInvalidFeeConfig, "min fee above base fee")

	newBase := uint16(700)
	require.NoError(t, eng.UpdateConfig(UpdateConfigParams{Authority: testAuthority, BaseFeeBps: &newBase}))
	settings, err := eng.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, uint16(700), settings.BaseFeeBps)

	// ticket grants
	err = eng.GrantTickets(testAuthority, "alice", 0)
	assert.ErrorIs(t, err, ErrInvalidTicketGrant)
	err = eng.GrantTickets(testAuthority, "alice", MaxTicketsPerGrant+1)
	assert.ErrorIs(t, err, ErrInvalidTicketGrant)
	require.NoError(t, eng.GrantTickets(testAuthority, "alice", 5))

	profile, err := eng.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(6), profile.TicketsAvailable)

	require.NoError(t, eng.AwardTierTickets(testAuthority, "alice", 1))
	profile, err = eng.GetProfile("alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(7), profile.TicketsAvailable)

	// profile close respects the stake lock
	err = eng.CloseProfile("alice")
	assert.ErrorIs(t, err, ErrProfileLocked)
	clock.advanceEpoch()
	clock.advanceEpoch()
	require.NoError(t, eng.CloseProfile("alice"))
	_, err = eng.GetProfile("alice")
	assert.Error(t, err)
}

func TestActivateTierTwice(t *testing.T) {
	eng, _ := newTestEngine(t)
	err := eng.ActivateTier(testAuthority, 1)
	assert.ErrorIs(t, err, ErrPoolExists)
}

func TestStakeRequiresBlockedNumber(t *testing.T) {
	store, err := kvstore.OpenInMemory("test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	clock := &fakeClock{now: EpochTime{Epoch: 100, ScheduleEpoch: 100, TicksRemaining: 400}}
	eng := New(store, clock, events.NopEmitter{})
	require.NoError(t, eng.Bootstrap(config.EngineConfig{
		Authority: testAuthority, BaseFeeBps: 500, MinFeeBps: 300,
		StakeCutoffTicks: 150,
		Tiers:            []config.TierConfig{{ID: 1, MinStake: 100, MaxStake: 1_000_000}},
	}))
	require.NoError(t, eng.ActivateTier(testAuthority, 1))

	// no ResetTier yet: the pool has no blocked number and takes no stakes
	_, err = eng.PlaceStake(PlaceStakeParams{
		Player: "alice", Tier: 1, PredictionType: TypeSingleNumber, Choice: 3, ValuePerNumber: 1_000,
	})
	assert.ErrorIs(t, err, ErrInvalidSelection)
}
