package engine

// RoundStatus is the settlement state machine for one (epoch, tier).
type RoundStatus uint8

const (
	// RoundFailed marks a round an operator gave up on; not set by any
	// engine operation, reachable only by external convention. Reprocess
	// moves it back to Processing.
	RoundFailed RoundStatus = 0
	// RoundProcessing means the off-core resolver is still working
	// (winner list, Merkle tree, results upload).
	RoundProcessing RoundStatus = 1
	// RoundResolved is terminal; only claim counters and bitmap bits may
	// change afterwards.
	RoundResolved RoundStatus = 2
)

// RolloverReason records why a round carried its pool forward.
type RolloverReason uint8

const (
	RolloverNone          RolloverReason = 0
	RolloverNoWinners     RolloverReason = 1
	RolloverBlockedNumber RolloverReason = 2
)

func (r RolloverReason) String() string {
	switch r {
	case RolloverNoWinners:
		return "no_winners"
	case RolloverBlockedNumber:
		return "blocked_number"
	default:
		return "none"
	}
}

const (
	// MaxWinnersPerRound caps the claim bitmap allocation.
	MaxWinnersPerRound = 50_000
	MaxBitmapLen       = (MaxWinnersPerRound + 7) / 8

	// ResultsPointerLen is the fixed width of the opaque results pointer.
	ResultsPointerLen = 128
)

// Round is the finalized ledger entry for one concluded (epoch, tier):
// pot breakdown, winner commitment and claim tracking. Value itself is
// never held here - it stays in the treasury; this is purely accounting.
type Round struct {
	Epoch         uint64      `json:"epoch"`
	Tier          uint8       `json:"tier"`
	Status        RoundStatus `json:"status"`
	WinningNumber uint8       `json:"winning_number"`

	// Randomness provenance, recorded for audit only.
	RngTick uint64   `json:"rng_tick"`
	RngSeed [32]byte `json:"rng_seed"`

	AttemptCount    uint8  `json:"attempt_count"`
	LastUpdatedTick uint64 `json:"last_updated_tick"`
	LastUpdatedAt   int64  `json:"last_updated_at"`

	CarriedStakes uint32 `json:"carried_stakes"`
	TotalStakes   uint32 `json:"total_stakes"`
	CarryInValue  uint64 `json:"carry_in_value"`
	CarryOutValue uint64 `json:"carry_out_value"`
	ProtocolFee   uint64 `json:"protocol_fee"`
	NetPrizePool  uint64 `json:"net_prize_pool"`

	TotalWinners   uint32 `json:"total_winners"`
	ClaimedWinners uint32 `json:"claimed_winners"`
	ClaimedValue   uint64 `json:"claimed_value"`
	ResolvedAt     int64  `json:"resolved_at"`

	MerkleRoot     [32]byte                `json:"merkle_root"`
	ResultsPointer [ResultsPointerLen]byte `json:"results_pointer"`
	ClaimedBitmap  []byte                  `json:"claimed_bitmap"`

	FirstEpochInChain uint64         `json:"first_epoch_in_chain"`
	RolloverReason    RolloverReason `json:"rollover_reason"`
	BlockedNumber     uint8          `json:"blocked_number"`
	FeeBps            uint16         `json:"fee_bps"`
}

// hasResultsPointer reports whether the pointer carries any payload
// (all-zero means the resolver never published results).
func (r *Round) hasResultsPointer() bool {
	for _, b := range r.ResultsPointer {
		if b != 0 {
			return true
		}
	}
	return false
}
