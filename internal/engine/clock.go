package engine

import "time"

// EpochTime is one observation of the scheduling oracle.
type EpochTime struct {
	// Epoch is the caller-visible current epoch.
	Epoch uint64
	// Tick is the absolute tick (monotonic within the schedule).
	Tick uint64
	// ScheduleEpoch is the epoch derived from Tick by the schedule. It can
	// disagree with Epoch on mis-configured networks; the cutoff check
	// fails open in that case.
	ScheduleEpoch uint64
	// TicksRemaining counts ticks left in ScheduleEpoch.
	TicksRemaining uint64
	Unix           int64
}

// EpochClock supplies the engine's view of epoch time.
type EpochClock interface {
	Now() EpochTime
}

// ScheduleClock derives epochs from wall time over a fixed tick schedule.
type ScheduleClock struct {
	Genesis       time.Time
	TickInterval  time.Duration
	TicksPerEpoch uint64
}

func (c ScheduleClock) Now() EpochTime {
	now := time.Now().UTC()
	tick := uint64(0)
	if now.After(c.Genesis) && c.TickInterval > 0 {
		tick = uint64(now.Sub(c.Genesis) / c.TickInterval)
	}
	epoch := tick / c.TicksPerEpoch
	lastTick := (epoch+1)*c.TicksPerEpoch - 1

	return EpochTime{
		Epoch:          epoch,
		Tick:           tick,
		ScheduleEpoch:  epoch,
		TicksRemaining: lastTick - tick,
		Unix:           now.Unix(),
	}
}

// stakeWindowOpen checks the epoch-boundary safety margin. If the schedule
// disagrees with the caller's epoch view the stake is allowed: the skew is
// treated as a benign scheduling artifact, not a security boundary.
func stakeWindowOpen(et EpochTime, cutoffTicks uint64) bool {
	if et.Epoch != et.ScheduleEpoch {
		return true
	}
	return et.TicksRemaining > cutoffTicks
}
