package onewire

import (
	"fmt"
	"time"
)

// Slot limits from the DS18B20 datasheet.
const (
	MinSlot     = 60 * time.Microsecond
	MaxSlot     = 120 * time.Microsecond
	MinResetLow = 480 * time.Microsecond

	// A presence pulse starts 15-60µs after release and lasts 60-240µs, so
	// the line is guaranteed low between 60µs and 75µs.
	MinPresenceSample = 60 * time.Microsecond
	MaxPresenceSample = 75 * time.Microsecond
)

// Timing holds every delay the master uses.
type Timing struct {
	// Write-1 slot: short low, long release.
	Write1Low     time.Duration
	Write1Release time.Duration

	// Write-0 slot: long low, short recovery.
	Write0Low     time.Duration
	Write0Release time.Duration

	// Read slot: start pulse, delay until sampling, remainder of the slot.
	ReadLow      time.Duration
	ReadSample   time.Duration
	ReadRecovery time.Duration

	// Reset pulse and presence detection.
	ResetLow     time.Duration
	PresenceWait time.Duration
	ResetSettle  time.Duration

	// PresenceMax bounds the wait for the presence pulse to end.
	PresenceMax time.Duration

	// PresenceScan samples every PollStep from release until PresenceWait
	// instead of sampling once at PresenceWait.
	PresenceScan bool

	// PollStep is the granularity of the line polling loops.
	PollStep time.Duration

	// IdleSettle is how long the line is left released before the idle
	// level check in Init.
	IdleSettle time.Duration
}

// DefaultTiming returns the reference timings: 2/60µs write-1, 60/2µs
// write-0, a 2+10+50µs read slot and a 600µs reset sampled at 67µs.
func DefaultTiming() Timing {
	return Timing{
		Write1Low:     2 * time.Microsecond,
		Write1Release: 60 * time.Microsecond,
		Write0Low:     60 * time.Microsecond,
		Write0Release: 2 * time.Microsecond,
		ReadLow:       2 * time.Microsecond,
		ReadSample:    10 * time.Microsecond,
		ReadRecovery:  50 * time.Microsecond,
		ResetLow:      600 * time.Microsecond,
		PresenceWait:  67 * time.Microsecond,
		ResetSettle:   50 * time.Microsecond,
		PresenceMax:   time.Millisecond,
		PollStep:      time.Microsecond,
		IdleSettle:    100 * time.Millisecond,
	}
}

// WriteSlot returns the total duration of a write slot for bit v.
func (t Timing) WriteSlot(v bool) time.Duration {
	if v {
		return t.Write1Low + t.Write1Release
	}
	return t.Write0Low + t.Write0Release
}

// ReadSlot returns the total duration of a read slot.
func (t Timing) ReadSlot() time.Duration {
	return t.ReadLow + t.ReadSample + t.ReadRecovery
}

// Validate checks the timings against the protocol limits.
func (t Timing) Validate() error {
	for _, s := range []struct {
		name string
		d    time.Duration
	}{
		{"write-1", t.WriteSlot(true)},
		{"write-0", t.WriteSlot(false)},
		{"read", t.ReadSlot()},
	} {
		if s.d < MinSlot || s.d > MaxSlot {
			return fmt.Errorf("onewire: %s slot %v outside %v-%v", s.name, s.d, MinSlot, MaxSlot)
		}
	}
	if t.Write1Low <= 0 || t.Write1Low >= 15*time.Microsecond {
		return fmt.Errorf("onewire: write-1 low %v must be under 15µs", t.Write1Low)
	}
	if t.ReadLow+t.ReadSample >= 15*time.Microsecond {
		return fmt.Errorf("onewire: read sample at %v must be under 15µs", t.ReadLow+t.ReadSample)
	}
	if t.ResetLow < MinResetLow {
		return fmt.Errorf("onewire: reset low %v under %v", t.ResetLow, MinResetLow)
	}
	if t.PresenceWait < MinPresenceSample || t.PresenceWait > MaxPresenceSample {
		return fmt.Errorf("onewire: presence sample %v outside %v-%v", t.PresenceWait, MinPresenceSample, MaxPresenceSample)
	}
	if t.PollStep <= 0 {
		return fmt.Errorf("onewire: poll step must be positive")
	}
	if t.PresenceMax < t.PollStep {
		return fmt.Errorf("onewire: presence max %v under poll step", t.PresenceMax)
	}
	return nil
}
