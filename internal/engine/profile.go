package engine

const (
	// RecentStakesCap is how many recent prediction keys a profile keeps.
	RecentStakesCap = 40
	// MaxTicketsPerGrant caps a single change-ticket grant.
	MaxTicketsPerGrant = 5
	// MaxTicketsPerPlayer caps tickets held at once.
	MaxTicketsPerPlayer = 100
)

// Profile tracks a player's aggregate activity and change tickets.
type Profile struct {
	Player string `json:"player"`

	TicketsAvailable uint32 `json:"tickets_available"`

	TotalStakes      uint64 `json:"total_stakes"`
	TotalWagered     uint64 `json:"total_wagered"`
	FirstPlayedEpoch uint64 `json:"first_played_epoch"`
	LastPlayedEpoch  uint64 `json:"last_played_epoch"`
	LastPlayedTier   uint8  `json:"last_played_tier"`
	LastPlayedAt     int64  `json:"last_played_at"`
	XPPoints         uint32 `json:"xp_points"`

	// LockedUntilEpoch gates profile teardown while a game is live.
	LockedUntilEpoch uint64 `json:"locked_until_epoch"`

	// Circular buffer of the last N prediction keys.
	RecentStakes     [RecentStakesCap]string `json:"recent_stakes"`
	RecentStakesLen  uint16                  `json:"recent_stakes_len"`
	RecentStakesHead uint16                  `json:"recent_stakes_head"`
}

func newProfile(player string) *Profile {
	return &Profile{
		Player:           player,
		TicketsAvailable: 1,
	}
}

// pushRecentStake appends a prediction key to the ring buffer.
func (p *Profile) pushRecentStake(key string) {
	head := int(p.RecentStakesHead)
	p.RecentStakes[head] = key

	p.RecentStakesHead = uint16((head + 1) % RecentStakesCap)
	if int(p.RecentStakesLen) < RecentStakesCap {
		p.RecentStakesLen++
	}
}

// awardTickets adds tickets, saturating at the per-player cap.
func (p *Profile) awardTickets(tickets uint32) {
	total := p.TicketsAvailable + tickets
	if total < p.TicketsAvailable || total > MaxTicketsPerPlayer {
		total = MaxTicketsPerPlayer
	}
	p.TicketsAvailable = total
}
