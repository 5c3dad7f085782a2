package engine

// FeeBpsDenom is the basis-point denominator for protocol fees.
const FeeBpsDenom = 10_000

// SplitFee takes the protocol fee out of a gross pool:
// fee = floor(gross * feeBps / 10_000), net = gross - fee.
func SplitFee(gross uint64, feeBps uint16) (fee uint64, net uint64, err error) {
	scaled, err := mulU64(gross, uint64(feeBps))
	if err != nil {
		return 0, 0, err
	}
	fee = scaled / FeeBpsDenom
	net, err = subU64(gross, fee)
	if err != nil {
		return 0, 0, err
	}
	return fee, net, nil
}

// NextFeeBpsOnRollover decays the fee after a blocked-number rollover.
//
// The fee decreases by stepBps per rollover and never goes below minBps,
// even if the current fee was already under the floor:
//
//	current=500 step=100 min=300 -> 400
//	current=400 step=100 min=300 -> 300
//	current=300 step=100 min=300 -> 300
func NextFeeBpsOnRollover(currentBps, stepBps, minBps uint16) uint16 {
	if stepBps == 0 {
		return max(currentBps, minBps)
	}

	current := max(currentBps, minBps)
	decreased := current - min(current, stepBps)
	return max(decreased, minBps)
}
