package engine

import "fmt"

// Entity keys. Each operation touches a small, fixed set of keys inside one
// store transaction; entities are partitioned by tier, (epoch, tier) or
// (player, chain, tier).
const (
	settingsKey = "settings"
	treasuryKey = "treasury"

	poolKeyPrefix       = "pool"
	roundKeyPrefix      = "round"
	predictionKeyPrefix = "prediction"
	profileKeyPrefix    = "profile"
)

func poolKey(tier uint8) string {
	return fmt.Sprintf("%s/%d", poolKeyPrefix, tier)
}

func roundKey(epoch uint64, tier uint8) string {
	return fmt.Sprintf("%s/%d/%d", roundKeyPrefix, epoch, tier)
}

func predictionKey(player string, chainEpoch uint64, tier uint8) string {
	return fmt.Sprintf("%s/%s/%d/%d", predictionKeyPrefix, player, chainEpoch, tier)
}

func profileKey(player string) string {
	return fmt.Sprintf("%s/%s", profileKeyPrefix, player)
}
