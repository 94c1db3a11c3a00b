// Package onewire implements a software-timed 1-Wire bus master and the
// DS18B20 transaction sequence layered on it.
//
// The master owns a single open-drain line. It only ever drives that line
// low or releases it; the external pull-up resistor provides the high level.
// All timing is delegated to an injected Delayer so the protocol can run
// against a simulated wire and clock in tests.
//
// Every slot must run to completion once started. The host must not delay
// the calling goroutine by more than a few microseconds during a
// transaction or the device will misread bit boundaries. Sensor pins the
// goroutine to its OS thread for each transaction, but neither the Go
// scheduler nor the kernel guarantees bounded latency, so a preempted slot
// can still corrupt a byte. Callers should treat a bad reading as transient
// and retry on the next conversion.
package onewire

import "time"

// Line is the shared data line of the bus.
type Line interface {
	// Release stops driving the line so the pull-up sets its level.
	Release()

	// DriveLow pulls the line to ground.
	DriveLow()

	// Sample returns true when the line reads high.
	// It never changes the drive state.
	Sample() bool
}

// Faulter is implemented by lines and buses that record I/O failures
// instead of returning them from every call.
type Faulter interface {
	// TakeErr returns the first failure since the previous call and
	// clears it.
	TakeErr() error
}

// Delayer waits for precise durations.
type Delayer interface {
	Delay(d time.Duration)
}

// SpinDelay busy-waits on the monotonic clock. time.Sleep cannot resolve
// single microseconds on a general purpose kernel.
type SpinDelay struct{}

// Delay spins until d has elapsed.
func (SpinDelay) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
