package events

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Base units per whole coin (lamport-style 1e9 fixed point).
const baseUnitDecimals = 9

// DisplayAmount renders a base-unit value as a whole-coin decimal string,
// e.g. 1_500_000_000 -> "1.5".
func DisplayAmount(baseUnits uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(baseUnits), -baseUnitDecimals).String()
}

// StakeData describes a placed, increased or changed stake.
type StakeData struct {
	Player         string `json:"player"`
	PredictionType uint8  `json:"prediction_type"`
	Selections     []uint8 `json:"selections"`
	ValuePerNumber string `json:"value_per_number"`
	TotalValue     string `json:"total_value"`
}

// RoundData describes a round lifecycle transition.
type RoundData struct {
	Status         string `json:"status"`
	WinningNumber  uint8  `json:"winning_number"`
	TotalWinners   uint32 `json:"total_winners,omitempty"`
	ProtocolFee    string `json:"protocol_fee,omitempty"`
	NetPrizePool   string `json:"net_prize_pool,omitempty"`
	CarryOutValue  string `json:"carry_out_value,omitempty"`
	RolloverReason string `json:"rollover_reason,omitempty"`
}

// ClaimData describes a successful payout.
type ClaimData struct {
	Player string `json:"player"`
	Index  uint32 `json:"index"`
	Amount string `json:"amount"`
}
