package engine

import "errors"

// Every operation validates fully before it mutates anything; any of these
// errors aborts the surrounding store transaction with zero side effects.
var (
	// authorization
	ErrUnauthorized = errors.New("unauthorized")

	// state mismatch between linked entities
	ErrEpochMismatch    = errors.New("epoch mismatch")
	ErrTierMismatch     = errors.New("tier mismatch")
	ErrUnknownTier      = errors.New("unknown tier")
	ErrInactiveTier     = errors.New("inactive tier")
	ErrPoolCorrupted    = errors.New("pool per-number state corrupted")
	ErrRoundNotFound    = errors.New("round not found")
	ErrRoundExists      = errors.New("round already exists")
	ErrRoundNotSettling = errors.New("round not in processing state")
	ErrRoundSettled     = errors.New("round already resolved")
	ErrRoundNotSettled  = errors.New("round not resolved")

	// timing
	ErrEpochNotComplete = errors.New("epoch not complete")
	ErrEpochNotAdvanced = errors.New("epoch not advanced")
	ErrStakingClosed    = errors.New("staking closed for this epoch")
	ErrStakingPaused    = errors.New("staking paused")
	ErrClaimsPaused     = errors.New("claims paused")

	// arithmetic
	ErrMathOverflow = errors.New("math overflow")

	// selection
	ErrInvalidSelection      = errors.New("invalid number selection")
	ErrInvalidAmount         = errors.New("invalid stake amount")
	ErrStakeOutOfTierRange   = errors.New("stake out of tier range")
	ErrSelectionCountChanged = errors.New("selection count mismatch")
	ErrNoOpChange            = errors.New("selection change is a no-op")
	ErrNoChangeTickets       = errors.New("no change tickets available")

	// settlement
	ErrNoStakesToSettle      = errors.New("no stakes to settle")
	ErrInvalidWinningNumber  = errors.New("invalid winning number")
	ErrEmptyResultsPointer   = errors.New("empty results pointer")
	ErrFeeMismatch           = errors.New("proposed fee does not match recomputation")
	ErrPotMismatch           = errors.New("proposed pot breakdown does not match recomputation")
	ErrInvalidCarryOver      = errors.New("invalid carry-over")
	ErrCarryNotAllowed       = errors.New("rollover condition not met")
	ErrTooManyWinners        = errors.New("too many winners for claim bitmap")

	// claims / double spend
	ErrNoWinners         = errors.New("round has no winners")
	ErrStakeNotFound     = errors.New("no stake for this chain")
	ErrDuplicateStake    = errors.New("stake already placed for this chain")
	ErrAlreadyClaimed    = errors.New("already claimed")
	ErrTooManyClaims     = errors.New("all winners already claimed")
	ErrInvalidClaimIndex = errors.New("invalid claim index")
	ErrInvalidClaimAmount = errors.New("invalid claim amount")
	ErrBitmapLength      = errors.New("claim bitmap length mismatch")

	// proofs
	ErrProofTooLong    = errors.New("merkle proof too long")
	ErrEmptyMerkleRoot = errors.New("empty merkle root")
	ErrInvalidProof    = errors.New("invalid merkle proof")

	// solvency
	ErrInsufficientCustody   = errors.New("insufficient custody balance")
	ErrInsufficientPrizePool = errors.New("insufficient prize pool remaining")

	// admin
	ErrPoolExists         = errors.New("pool already exists")
	ErrPoolNotEmpty       = errors.New("pool not empty")
	ErrInvalidFeeConfig   = errors.New("invalid fee configuration")
	ErrInvalidCutoff      = errors.New("invalid cutoff")
	ErrInvalidBlocked     = errors.New("invalid blocked number")
	ErrInvalidTicketGrant = errors.New("invalid ticket grant")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileLocked      = errors.New("profile locked by active game")
)
